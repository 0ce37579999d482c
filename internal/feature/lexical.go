package feature

import (
	"strings"

	"github.com/DataDog/go-sqllexer"
)

// lexical holds the token-derived counts for one statement. Counting is
// token-based so keywords inside string literals or identifiers (a column
// named "selected", a value 'join me') are never miscounted.
type lexical struct {
	numSelect      int
	numJoin        int
	numSubqueries  int
	numGroupBy     int
	numOrderBy     int
	numDistinct    int
	numLimit       int
	hasSelectStar  bool
	hasWhereClause bool
}

func scanLexical(query string) lexical {
	var lx lexical

	lexer := sqllexer.New(query, sqllexer.WithDBMS(sqllexer.DBMSPostgres))
	depth := 0
	prevWord := ""
	afterSelect := false

	for {
		tok := lexer.Scan()
		if tok.Type == sqllexer.EOF || tok.Type == sqllexer.ERROR {
			break
		}
		if tok.Type == sqllexer.SPACE || isComment(tok.Value) {
			continue
		}

		if afterSelect && tok.Value == "*" {
			lx.hasSelectStar = true
		}
		afterSelect = false

		if isWordToken(tok) {
			word := strings.ToUpper(tok.Value)
			switch word {
			case "SELECT":
				lx.numSelect++
				if depth >= 1 {
					lx.numSubqueries++
				}
				afterSelect = true
			case "JOIN":
				lx.numJoin++
			case "DISTINCT":
				lx.numDistinct++
			case "LIMIT":
				lx.numLimit++
			case "WHERE":
				lx.hasWhereClause = true
			case "BY":
				if prevWord == "GROUP" {
					lx.numGroupBy++
				}
				if prevWord == "ORDER" {
					lx.numOrderBy++
				}
			}
			prevWord = word
		} else {
			prevWord = ""
		}

		depth = trackParens(tok.Value, depth)
	}

	return lx
}

// comparison tokens that mark the identifier to their left as a predicate
// column.
var comparisonOps = map[string]struct{}{
	"=": {}, "<": {}, ">": {}, "<=": {}, ">=": {}, "<>": {}, "!=": {},
	"~~": {}, "!~~": {},
}

var comparisonWords = map[string]struct{}{
	"LIKE": {}, "ILIKE": {}, "IN": {}, "BETWEEN": {}, "IS": {},
}

var whereTerminators = map[string]struct{}{
	"GROUP": {}, "ORDER": {}, "LIMIT": {}, "HAVING": {},
	"WINDOW": {}, "UNION": {}, "OFFSET": {}, "RETURNING": {},
}

// PredicateColumns extracts the column names compared in the statement's
// WHERE clause, in first-appearance order. It is a heuristic for index
// advice: unparseable predicates simply yield no columns, never an error.
func PredicateColumns(query string) []string {
	lexer := sqllexer.New(query, sqllexer.WithDBMS(sqllexer.DBMSPostgres))

	depth := 0
	whereDepth := -1
	inWhere := false
	lastIdent := ""
	seen := map[string]struct{}{}
	var cols []string

	record := func() {
		if lastIdent == "" {
			return
		}
		col := normalizeColumn(lastIdent)
		lastIdent = ""
		if col == "" {
			return
		}
		if _, dup := seen[col]; dup {
			return
		}
		seen[col] = struct{}{}
		cols = append(cols, col)
	}

	for {
		tok := lexer.Scan()
		if tok.Type == sqllexer.EOF || tok.Type == sqllexer.ERROR {
			break
		}
		if tok.Type == sqllexer.SPACE || isComment(tok.Value) {
			continue
		}

		if isWordToken(tok) {
			word := strings.ToUpper(tok.Value)
			switch {
			case word == "WHERE":
				inWhere = true
				whereDepth = depth
				lastIdent = ""
				continue
			case inWhere && depth <= whereDepth:
				if _, done := whereTerminators[word]; done {
					inWhere = false
					continue
				}
			}
			if inWhere {
				if _, cmp := comparisonWords[word]; cmp {
					record()
				} else if tok.Type == sqllexer.IDENT {
					lastIdent = tok.Value
				}
			}
			depth = trackParens(tok.Value, depth)
			continue
		}

		if inWhere {
			if _, cmp := comparisonOps[tok.Value]; cmp {
				record()
			} else if tok.Value != "(" && tok.Value != ")" && tok.Value != "." {
				lastIdent = ""
			}
		}
		depth = trackParens(tok.Value, depth)
	}

	return cols
}

func isWordToken(tok *sqllexer.Token) bool {
	return tok.Type == sqllexer.COMMAND || tok.Type == sqllexer.KEYWORD || tok.Type == sqllexer.IDENT
}

func isComment(val string) bool {
	return strings.HasPrefix(val, "--") || strings.HasPrefix(val, "/*")
}

// trackParens adjusts nesting depth from a token's raw text. Quoted values
// are skipped so parentheses inside literals do not shift the depth.
func trackParens(val string, depth int) int {
	if val == "" {
		return depth
	}
	switch val[0] {
	case '\'', '"', '$':
		return depth
	}
	for _, r := range val {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

func normalizeColumn(ident string) string {
	// Qualified references keep only the column part.
	if i := strings.LastIndexByte(ident, '.'); i >= 0 {
		ident = ident[i+1:]
	}
	ident = strings.Trim(ident, `"`)
	if ident == "" || ident == "*" {
		return ""
	}
	return strings.ToLower(ident)
}
