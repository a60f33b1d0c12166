//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

const binary = "bin/yolorank"

// Default target when running `stave` with no arguments.
var Default = All

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"c": Clean,
}

// All runs the complete build pipeline: lint, test, and build.
func All() error {
	st.Deps(Init)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Init ensures the module dependencies are up to date.
func Init() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles the yolorank binary with version information.
func Build() error {
	st.Deps(Init)

	rebuild, err := target.Glob(binary, "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Println("yolorank is up to date")
		}
		return nil
	}

	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", binary, "./cmd/yolorank")
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s",
		strings.TrimSpace(version),
		strings.TrimSpace(commit),
	)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// TestShort runs tests in short mode (skips ONNX model tests).
func TestShort() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// TestVerbose runs tests with verbose output.
func TestVerbose() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "-v", "./...")
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// LintFix runs golangci-lint with auto-fix enabled.
func LintFix() error {
	return sh.RunV("golangci-lint", "run", "--fix", "./...")
}

// Fmt formats all Go code using gofmt and goimports.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	if err := sh.Run("goimports", "-w", "."); err != nil {
		return fmt.Errorf("goimports: %w", err)
	}
	return nil
}

// Vet runs go vet on all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	for _, a := range []string{"bin/", "coverage.out", "coverage.html"} {
		if err := sh.Rm(a); err != nil {
			return fmt.Errorf("removing %s: %w", a, err)
		}
	}
	return nil
}

// Install builds and installs yolorank to GOBIN.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = gopath + "/bin"
	}

	dst := bin + "/yolorank"
	if runtime.GOOS == "windows" {
		dst += ".exe"
	}
	if err := sh.Copy(dst, binary); err != nil {
		return fmt.Errorf("installing yolorank: %w", err)
	}
	if st.Verbose() {
		fmt.Printf("Installed yolorank to %s\n", dst)
	}
	return nil
}

// Eval namespace for evaluation and training targets.
type Eval st.Namespace

// configPath returns $YOLORANK_CONFIG or yolorank.yaml.
func configPath() string {
	if p := os.Getenv("YOLORANK_CONFIG"); p != "" {
		return p
	}
	return "yolorank.yaml"
}

// Run evaluates every configured model and writes a comparison table.
func (Eval) Run() error {
	st.Deps(Build)
	return sh.RunV("./"+binary, "evaluate", "--config", configPath())
}

// Train trains every base model in the configured model directory.
func (Eval) Train() error {
	st.Deps(Build)
	return sh.RunV("./"+binary, "train", "--config", configPath())
}

// Rank namespace for ranking targets.
type Rank st.Namespace

// latestTable returns $YOLORANK_TABLE or the newest comparison table in
// evaluation_results/.
func latestTable() (string, error) {
	if p := os.Getenv("YOLORANK_TABLE"); p != "" {
		return p, nil
	}
	matches, err := filepath.Glob("evaluation_results/model_comparison_*.csv")
	if err != nil {
		return "", err
	}
	var tables []string
	for _, m := range matches {
		if strings.Count(filepath.Base(m), "_") == 3 {
			tables = append(tables, m)
		}
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("no comparison table in evaluation_results; run stave eval:run first")
	}
	// Timestamps sort lexically.
	sort.Strings(tables)
	return tables[len(tables)-1], nil
}

func rank(method string) error {
	st.Deps(Build)
	table, err := latestTable()
	if err != nil {
		return err
	}
	return sh.RunV("./"+binary, "rank", method, table)
}

// All runs every ranking method on the latest comparison table.
func (Rank) All() error { return rank("all") }

// Pairwise ranks the latest comparison table by head-to-head wins.
func (Rank) Pairwise() error { return rank("pairwise") }

// PCA ranks the latest comparison table by distance to the ideal model.
func (Rank) PCA() error { return rank("pca") }

// PC1 ranks the latest comparison table by first-component score.
func (Rank) PC1() error { return rank("pc1") }

// CI runs the full CI pipeline (lint, test, build).
func CI() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs quick validation (vet, lint, short tests).
func Check() error {
	st.Deps(Vet, Lint, TestShort)
	return nil
}

// Coverage generates a coverage report.
func Coverage() error {
	st.Deps(Init)
	if err := sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}

// Tidy runs go mod tidy and verifies the go.sum is clean.
func Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}
	// Verify no changes to go.sum (useful for CI)
	output, err := sh.Output("git", "diff", "--exit-code", "go.sum")
	if err != nil {
		if output != "" {
			return fmt.Errorf("go.sum is not clean:\n%s", output)
		}
	}
	return nil
}
