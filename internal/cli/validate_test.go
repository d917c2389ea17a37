package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runValidateOn(t *testing.T, path string, schema bool) (string, string, error) {
	t.Helper()
	validateConfigFile = path
	validateSchema = schema
	defer func() {
		validateConfigFile = ""
		validateSchema = false
	}()

	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := runValidate(cmd, nil)
	return out.String(), errOut.String(), err
}

func TestRunValidate_Valid(t *testing.T) {
	path := writeManifest(t, "models:\n  checkpoints:\n    - https://example.com/a.bin\n")
	out, _, err := runValidateOn(t, path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "passed validation") {
		t.Errorf("output = %q", out)
	}
}

func TestRunValidate_Violations(t *testing.T) {
	path := writeManifest(t, "bogus: 1\nmodels:\n  checkpoints: nope\n")
	out, _, err := runValidateOn(t, path, false)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("error = %v, want ExitError code 1", err)
	}
	if !strings.Contains(out, "Configuration validation failed") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "  - Unknown top-level key: bogus") {
		t.Errorf("missing violation line in %q", out)
	}
	if !strings.Contains(out, "  - models.checkpoints must be a list") {
		t.Errorf("missing violation line in %q", out)
	}
}

func TestRunValidate_FatalMissingFile(t *testing.T) {
	_, errOut, err := runValidateOn(t, filepath.Join(t.TempDir(), "absent.yml"), false)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("error = %v, want ExitError code 2", err)
	}
	if !strings.Contains(errOut, "[!]") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRunValidate_FatalNonMapping(t *testing.T) {
	path := writeManifest(t, "- just\n- a\n- list\n")
	_, _, err := runValidateOn(t, path, false)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("error = %v, want ExitError code 2", err)
	}
}

func TestRunValidate_SchemaIssues(t *testing.T) {
	path := writeManifest(t, "install:\n  cpu_only: maybe\n")
	out, _, err := runValidateOn(t, path, true)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("error = %v, want ExitError code 1", err)
	}
	if !strings.Contains(out, "schema") {
		t.Errorf("schema issue missing from %q", out)
	}
}

func TestExitError(t *testing.T) {
	plain := &ExitError{Code: 2}
	if plain.Error() != "exit code 2" {
		t.Errorf("Error() = %q", plain.Error())
	}

	wrapped := &ExitError{Code: 1, Err: errors.New("boom")}
	if wrapped.Error() != "boom" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("Unwrap should expose the inner error")
	}
}
