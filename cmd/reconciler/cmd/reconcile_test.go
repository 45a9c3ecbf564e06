package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	// Create temporary test files
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "statement.json")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		description string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			description: "test file",
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			description: "test file",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/statement.json",
			description: "test file",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			description: "test file",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, tt.description)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadReconcileOptions(t *testing.T) {
	// Create temporary test files
	tmpDir := t.TempDir()
	statementFile := filepath.Join(tmpDir, "statement.txt")
	inbox := filepath.Join(tmpDir, "inbox")

	if err := os.WriteFile(statementFile, []byte(statementText), 0644); err != nil {
		t.Fatalf("failed to create statement file: %v", err)
	}
	if err := os.Mkdir(inbox, 0755); err != nil {
		t.Fatalf("failed to create inbox: %v", err)
	}

	valid := func(v *viper.Viper) {
		v.Set("reconcile.profile", "alice")
		v.Set("reconcile.statement", []string{statementFile})
		v.Set("reconcile.messages", []string{inbox})
		v.Set("output.format", "console")
		v.Set("matching.preset", "default")
	}

	tests := []struct {
		name          string
		setupFlags    func(v *viper.Viper)
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid flags",
			setupFlags:  valid,
			expectError: false,
		},
		{
			name: "missing profile",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("reconcile.profile", " ")
			},
			expectError:   true,
			errorContains: "profile is required",
		},
		{
			name: "missing statement files",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("reconcile.statement", []string{})
			},
			expectError:   true,
			errorContains: "at least one statement file is required",
		},
		{
			name: "missing messages",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("reconcile.messages", []string{})
			},
			expectError:   true,
			errorContains: "a messages directory is required",
		},
		{
			name: "statement file does not exist",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("reconcile.statement", []string{filepath.Join(tmpDir, "missing.json")})
			},
			expectError:   true,
			errorContains: "statement file 1 does not exist",
		},
		{
			name: "messages path does not exist",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("reconcile.messages", []string{filepath.Join(tmpDir, "nowhere")})
			},
			expectError:   true,
			errorContains: "messages path does not exist",
		},
		{
			name: "invalid output format",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("output.format", "invalid")
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
		{
			name: "unknown preset",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("matching.preset", "fuzzy")
			},
			expectError:   true,
			errorContains: "unknown matching preset",
		},
		{
			name: "negative date tolerance",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("matching.date_tolerance_days", -2)
			},
			expectError:   true,
			errorContains: "date tolerance cannot be negative",
		},
		{
			name: "negative amount tolerance",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("matching.amount_tolerance", -0.5)
			},
			expectError:   true,
			errorContains: "amount tolerance cannot be negative",
		},
		{
			name: "output directory does not exist",
			setupFlags: func(v *viper.Viper) {
				valid(v)
				v.Set("output.file", filepath.Join(tmpDir, "missing", "report.json"))
			},
			expectError:   true,
			errorContains: "output directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setupFlags(v)

			opts, err := loadReconcileOptions(v)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.Profile != "alice" {
				t.Errorf("expected profile alice, got %s", opts.Profile)
			}
		})
	}
}

func TestLoadReconcileOptions_Tolerances(t *testing.T) {
	tmpDir := t.TempDir()
	statementFile := filepath.Join(tmpDir, "statement.txt")
	if err := os.WriteFile(statementFile, []byte(statementText), 0644); err != nil {
		t.Fatalf("failed to create statement file: %v", err)
	}

	v := viper.New()
	v.Set("reconcile.profile", "alice")
	v.Set("reconcile.statement", []string{statementFile})
	v.Set("reconcile.messages", []string{tmpDir})

	opts, err := loadReconcileOptions(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DateTolerance != -1 || opts.AmountTolerance != -1 {
		t.Errorf("unset tolerances should keep the preset, got %d and %v", opts.DateTolerance, opts.AmountTolerance)
	}
	if opts.OutputFormat != "console" {
		t.Errorf("expected console output by default, got %s", opts.OutputFormat)
	}

	v.Set("matching.date_tolerance_days", 0)
	v.Set("matching.amount_tolerance", 0)
	opts, err = loadReconcileOptions(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DateTolerance != 0 || opts.AmountTolerance != 0 {
		t.Errorf("explicit zero tolerances should be kept, got %d and %v", opts.DateTolerance, opts.AmountTolerance)
	}
}

func TestReconcileCommandHelp(t *testing.T) {
	cmd := reconcileCmd

	// Test that command has required flags
	for _, name := range []string{"profile", "statement", "messages", "output-format"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("%s flag not found", name)
		}
	}

	// Test help output contains key information
	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	defer cmd.SetOut(nil)
	cmd.Help()

	helpText := helpOutput.String()

	expectedSections := []string{
		"Usage:",
		"Examples:",
		"Flags:",
		"--profile",
		"--statement",
		"--messages",
		"--output-format",
		"--preset",
	}

	for _, section := range expectedSections {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestFlagBinding(t *testing.T) {
	// Test that all flags are properly bound to viper
	cmd := reconcileCmd

	flagTests := []struct {
		flagName string
		viperKey string
	}{
		{"profile", "reconcile.profile"},
		{"statement", "reconcile.statement"},
		{"messages", "reconcile.messages"},
		{"output-format", "output.format"},
		{"output-file", "output.file"},
		{"include-matched", "output.include_matched"},
		{"preset", "matching.preset"},
		{"date-tolerance", "matching.date_tolerance_days"},
		{"amount-tolerance", "matching.amount_tolerance"},
		{"progress", "progress"},
	}

	for _, tt := range flagTests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Errorf("flag '%s' not found", tt.flagName)
				return
			}

			if strings.HasSuffix(flag.Value.Type(), "Slice") {
				return
			}
			if got := viper.GetString(tt.viperKey); got != flag.Value.String() {
				t.Errorf("viper key %s = %q, expected flag value %q", tt.viperKey, got, flag.Value.String())
			}
		})
	}
}
