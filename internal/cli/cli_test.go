package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordingCopier struct {
	copied []string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

var fixedNow = time.Date(2024, time.March, 5, 6, 7, 8, 0, time.UTC)

func isolateHome(t *testing.T) string {
	t.Helper()
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	return homeDir
}

func runCLI(t *testing.T, copier *recordingCopier, arguments ...string) (string, string, error) {
	t.Helper()
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	deps := dependencies{now: func() time.Time { return fixedNow }}
	if copier != nil {
		deps.copier = copier
	}
	err := executeWithArguments(arguments, &stdout, &stderr, deps)
	return stdout.String(), stderr.String(), err
}

func writeCLIFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListCommandHidesIgnoredEntries(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeCLIFile(t, filepath.Join(root, ".gitignore"), []byte("build/\n"))
	writeCLIFile(t, filepath.Join(root, "build", "out.o"), []byte("obj"))
	writeCLIFile(t, filepath.Join(root, "src", "lib.rs"), []byte("pub fn f() {}\n"))
	writeCLIFile(t, filepath.Join(root, "main.rs"), []byte("fn main() {}\n"))

	testCases := []struct {
		name      string
		arguments []string
		expected  string
	}{
		{name: "children", arguments: []string{"list", root}, expected: "[Directory] src\n[File] main.rs\n"},
		{name: "alias_recursive", arguments: []string{"ls", "--recursive", root}, expected: "[Directory] src\n└── [File] lib.rs\n[File] main.rs\n"},
		{name: "depth_one", arguments: []string{"list", "--recursive", "yes", "--depth", "1", root}, expected: "[Directory] src (truncated)\n[File] main.rs\n"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, nil, testCase.arguments...)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if stdout != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, stdout)
			}
		})
	}
}

func TestListCommandRejectsInvalidInput(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	filePath := filepath.Join(root, "file.txt")
	writeCLIFile(t, filePath, []byte("x"))

	if _, _, err := runCLI(t, nil, "list", "--format", "yaml", root); err == nil {
		t.Fatalf("expected invalid format error")
	}
	if _, _, err := runCLI(t, nil, "list", filePath); err == nil || !strings.Contains(err.Error(), "is not a directory") {
		t.Fatalf("expected not a directory error, got %v", err)
	}
	if _, _, err := runCLI(t, nil, "list", filepath.Join(root, "missing")); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

func TestPromptCommandAssemblesAndCopies(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	firstPath := filepath.Join(root, "a", "x.txt")
	secondPath := filepath.Join(root, "a", "y.txt")
	writeCLIFile(t, firstPath, []byte("X"))
	writeCLIFile(t, secondPath, []byte("Y"))

	copier := &recordingCopier{}
	stdout, _, err := runCLI(t, copier,
		"prompt",
		"--root", root,
		"--file-template", "{{file_name}}: {{file_content}}\n",
		"--prompt-template", "{{filetree}}---\n{{files}}",
		"--copy",
		firstPath, secondPath,
	)
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	expected := "└── a\n    ├── x.txt\n    └── y.txt\n---\nx.txt: X\ny.txt: Y\n"
	if stdout != expected {
		t.Fatalf("expected %q, got %q", expected, stdout)
	}
	if len(copier.copied) != 1 || copier.copied[0] != expected {
		t.Fatalf("expected clipboard to receive the prompt, got %v", copier.copied)
	}
}

func TestPromptCommandSkipsInvalidFilesAndSaves(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	textPath := filepath.Join(root, "notes.txt")
	binaryPath := filepath.Join(root, "blob.dat")
	writeCLIFile(t, textPath, []byte("hello"))
	writeCLIFile(t, binaryPath, []byte{0xff, 0xfe, 0x00})
	saveDirectory := filepath.Join(t.TempDir(), "prompts")

	stdout, stderr, err := runCLI(t, nil,
		"p",
		"--root", root,
		"--file-template", "<{{file_path}}>",
		"--prompt-template", "{{files}}",
		"--save-dir", saveDirectory,
		textPath, binaryPath,
	)
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	if stdout != "<notes.txt>" {
		t.Fatalf("unexpected prompt %q", stdout)
	}
	savedPath := filepath.Join(saveDirectory, "prompt_2024-03-05T06-07-08.txt")
	saved, readErr := os.ReadFile(savedPath)
	if readErr != nil {
		t.Fatalf("expected saved prompt at %s: %v", savedPath, readErr)
	}
	if string(saved) != stdout {
		t.Fatalf("saved prompt %q differs from output %q", string(saved), stdout)
	}
	if !strings.Contains(stderr, savedPath) {
		t.Fatalf("expected status line naming %s, got %q", savedPath, stderr)
	}
}

func TestTreeAndFileCommands(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	sourcePath := filepath.Join(root, "cmd", "main.go")
	invalidPath := filepath.Join(root, "cmd", "data.bin")
	writeCLIFile(t, sourcePath, []byte("package main\n"))
	writeCLIFile(t, invalidPath, []byte{0xc3, 0x28})

	stdout, _, err := runCLI(t, nil, "tree", "--root", root, sourcePath)
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if stdout != "└── cmd\n    └── main.go\n" {
		t.Fatalf("unexpected tree %q", stdout)
	}

	stdout, _, err = runCLI(t, nil, "file", "--root", root, "--file-template", "{{file_path}}|{{file_content}}", sourcePath)
	if err != nil {
		t.Fatalf("file failed: %v", err)
	}
	if stdout != "cmd/main.go|package main\n" {
		t.Fatalf("unexpected file block %q", stdout)
	}

	if _, _, err := runCLI(t, nil, "file", "--root", root, invalidPath); err == nil {
		t.Fatalf("expected error for invalid UTF-8 file")
	}
	if _, _, err := runCLI(t, nil, "tree", "--root", root, filepath.Join(root, "cmd")); err == nil {
		t.Fatalf("expected error for directory selection")
	}
}

func TestPresetsCommandsManageStore(t *testing.T) {
	isolateHome(t)
	storePath := filepath.Join(t.TempDir(), "presets.yaml")
	t.Setenv("PROMPTCOMPOSER_PRESETS", storePath)

	if _, _, err := runCLI(t, nil, "presets", "save", "review", "--file-template", "F:{{file_content}}", "--prompt-template", "P:{{files}}"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, _, err := runCLI(t, nil, "presets", "save", "summary"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, _, err := runCLI(t, nil, "presets", "rename", "summary", "digest"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, _, err := runCLI(t, nil, "presets", "reorder", "digest", "review"); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	stdout, _, err := runCLI(t, nil, "presets", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "  digest") || !strings.HasSuffix(lines[1], "  review") {
		t.Fatalf("unexpected preset listing %q", stdout)
	}

	root := t.TempDir()
	filePath := filepath.Join(root, "a.txt")
	writeCLIFile(t, filePath, []byte("A"))
	stdout, _, err = runCLI(t, nil, "prompt", "--root", root, "--preset", "review", filePath)
	if err != nil {
		t.Fatalf("prompt with preset failed: %v", err)
	}
	if stdout != "P:F:A" {
		t.Fatalf("unexpected preset prompt %q", stdout)
	}

	if _, _, err := runCLI(t, nil, "presets", "delete", "review"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, _, err := runCLI(t, nil, "prompt", "--root", root, "--preset", "review", filePath); err == nil {
		t.Fatalf("expected missing preset error")
	}
}

func TestInitCommandWritesGlobalConfiguration(t *testing.T) {
	homeDir := isolateHome(t)
	if _, _, err := runCLI(t, nil, "init", "--global"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	configurationPath := filepath.Join(homeDir, ".promptcomposer", "config.yaml")
	if _, err := os.Stat(configurationPath); err != nil {
		t.Fatalf("expected configuration at %s: %v", configurationPath, err)
	}
	if _, _, err := runCLI(t, nil, "init", "--global"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if _, _, err := runCLI(t, nil, "init", "--global", "--force"); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
}

func TestVersionFlag(t *testing.T) {
	isolateHome(t)
	stdout, _, err := runCLI(t, nil, "--version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "promptcomposer version: ") {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestPromptAndTreeCommandsExpandDirectories(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeCLIFile(t, filepath.Join(root, ".gitignore"), []byte("build/\n"))
	writeCLIFile(t, filepath.Join(root, "src", "a.go"), []byte("A"))
	writeCLIFile(t, filepath.Join(root, "src", "build", "out.o"), []byte("obj"))
	sourceDirectory := filepath.Join(root, "src")

	testCases := []struct {
		name      string
		arguments []string
		expected  string
	}{
		{
			name:      "prompt",
			arguments: []string{"prompt", "--root", root, "--file-template", "{{file_path}}={{file_content}}", "--prompt-template", "{{filetree}}{{files}}", sourceDirectory},
			expected:  "└── src\n    └── a.go\nsrc/a.go=A",
		},
		{
			name:      "tree_with_overlapping_file",
			arguments: []string{"tree", "--root", root, sourceDirectory, filepath.Join(sourceDirectory, "a.go")},
			expected:  "└── src\n    └── a.go\n",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, nil, testCase.arguments...)
			if err != nil {
				t.Fatalf("%s failed: %v", testCase.name, err)
			}
			if stdout != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, stdout)
			}
		})
	}
}

func TestPromptCommandRejectsDirectoryWithoutVisibleFiles(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeCLIFile(t, filepath.Join(root, ".gitignore"), []byte("build/\n"))
	writeCLIFile(t, filepath.Join(root, "build", "out.o"), []byte("obj"))
	writeCLIFile(t, filepath.Join(root, "empty", "build", "out.o"), []byte("obj"))

	_, _, err := runCLI(t, nil, "prompt", "--root", root, filepath.Join(root, "empty"))
	if err == nil || !strings.Contains(err.Error(), "no visible files") {
		t.Fatalf("expected no visible files error, got %v", err)
	}
}
