package profile

import (
	"testing"
)

func setupTestConfig(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	origFunc := configDirFunc
	configDirFunc = func() (string, error) {
		return tmpDir, nil
	}
	t.Cleanup(func() { configDirFunc = origFunc })
	t.Setenv(EnvDSN, "")
}

func TestAdd_NewProfile(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://localhost/prod"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[0].Name != "prod" {
		t.Errorf("Name = %q, want prod", profiles[0].Name)
	}
	if profiles[0].DSN != "postgres://localhost/prod" {
		t.Errorf("DSN = %q", profiles[0].DSN)
	}
}

func TestAdd_UpdateExisting(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://localhost/prod_v1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add("prod", "postgres://localhost/prod_v2"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after update, got %d", len(profiles))
	}
	if profiles[0].DSN != "postgres://localhost/prod_v2" {
		t.Errorf("DSN not updated: %q", profiles[0].DSN)
	}
}

func TestAdd_MultipleProfiles(t *testing.T) {
	setupTestConfig(t)

	for name, dsn := range map[string]string{
		"prod":    "postgres://prod-host/db",
		"dev":     "postgres://localhost/db",
		"staging": "postgres://staging-host/db",
	} {
		if err := Add(name, dsn); err != nil {
			t.Fatalf("Add(%q) failed: %v", name, err)
		}
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 3 {
		t.Errorf("expected 3 profiles, got %d", len(profiles))
	}
}

func TestRemove_Existing(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://localhost/prod"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add("dev", "postgres://localhost/dev"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := Remove("prod"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after remove, got %d", len(profiles))
	}
	if profiles[0].Name != "dev" {
		t.Errorf("remaining profile = %q, want dev", profiles[0].Name)
	}
}

func TestRemove_ClearsDefault(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://localhost/prod"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if err := Remove("prod"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	name, err := GetDefault()
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if name != "" {
		t.Errorf("default = %q, want empty after removing it", name)
	}
}

func TestRemove_NonExistent(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://localhost/prod"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := Remove("staging"); err == nil {
		t.Fatal("expected error when removing non-existent profile")
	}
}

func TestResolve_ExistingProfile(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://prod-host/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	dsn, err := Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if dsn != "postgres://prod-host/db" {
		t.Errorf("DSN = %q", dsn)
	}
}

func TestResolve_NonExistent(t *testing.T) {
	setupTestConfig(t)

	if _, err := Resolve("nonexistent"); err == nil {
		t.Fatal("expected error for non-existent profile")
	}
}

func TestResolve_NoConfigFile(t *testing.T) {
	setupTestConfig(t)

	if _, err := Resolve("anything"); err == nil {
		t.Fatal("expected error when no config file exists")
	}
}

func TestSetDefault(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://prod-host/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add("dev", "postgres://localhost/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	defaultName, err := GetDefault()
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if defaultName != "prod" {
		t.Errorf("default = %q, want prod", defaultName)
	}
}

func TestSetDefault_NonExistent(t *testing.T) {
	setupTestConfig(t)

	if err := SetDefault("nonexistent"); err == nil {
		t.Fatal("expected error when setting non-existent profile as default")
	}
}

func TestClearDefault(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://prod-host/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	if err := ClearDefault(); err != nil {
		t.Fatalf("ClearDefault failed: %v", err)
	}

	defaultName, err := GetDefault()
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if defaultName != "" {
		t.Errorf("default = %q, want empty", defaultName)
	}
}

func TestResolveDSN_DbFlag(t *testing.T) {
	setupTestConfig(t)

	dsn, err := ResolveDSN("postgres://direct/db", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "postgres://direct/db" {
		t.Errorf("DSN = %q", dsn)
	}
}

func TestResolveDSN_ProfileFlag(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://prod-host/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	dsn, err := ResolveDSN("", "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "postgres://prod-host/db" {
		t.Errorf("DSN = %q", dsn)
	}
}

func TestResolveDSN_EnvOverride(t *testing.T) {
	setupTestConfig(t)
	t.Setenv(EnvDSN, "postgres://env-host/db")

	dsn, err := ResolveDSN("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "postgres://env-host/db" {
		t.Errorf("DSN = %q, want the environment value", dsn)
	}
}

func TestResolveDSN_FlagBeatsEnv(t *testing.T) {
	setupTestConfig(t)
	t.Setenv(EnvDSN, "postgres://env-host/db")

	dsn, err := ResolveDSN("postgres://direct/db", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "postgres://direct/db" {
		t.Errorf("DSN = %q, want the flag value", dsn)
	}
}

func TestResolveDSN_DefaultFallback(t *testing.T) {
	setupTestConfig(t)

	if err := Add("prod", "postgres://prod-host/db"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	dsn, err := ResolveDSN("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "postgres://prod-host/db" {
		t.Errorf("DSN = %q, want prod connection", dsn)
	}
}

func TestResolveDSN_NoFlagsNoDefault(t *testing.T) {
	setupTestConfig(t)

	dsn, err := ResolveDSN("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "" {
		t.Errorf("DSN = %q, want empty", dsn)
	}
}

func TestList_EmptyConfig(t *testing.T) {
	setupTestConfig(t)

	profiles, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profiles != nil {
		t.Errorf("expected nil profiles, got %v", profiles)
	}
}
