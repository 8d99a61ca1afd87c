//go:build ignore

// build.go - marketlens build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, analyze, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const versionPkg = "marketlens/pkg/contracts"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	Release bool
}

var (
	distDir = "dist"

	// key = source dir under cmd/, value = output name without extension
	executables = map[string]string{
		"web":     "marketlens",
		"analyze": "marketlens-analyze",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()
	ctx := &BuildContext{Verbose: *verbose}

	switch *target {
	case "all":
		buildAll(ctx)
	case "web", "analyze":
		buildExecutable(*target, ctx)
	case "clean":
		clean()
	case "test":
		runTests(ctx.Verbose)
	case "release":
		ctx.Release = true
		clean()
		runTests(ctx.Verbose)
		buildAll(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "      marketlens - Build System" + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(ctx *BuildContext) {
	printInfo("Building all executables...")
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create %s: %v", distDir, err))
		os.Exit(1)
	}
	for name := range executables {
		buildExecutable(name, ctx)
	}
	copyConfigFiles()
}

func buildExecutable(name string, ctx *BuildContext) {
	outName := executables[name]
	if runtime.GOOS == "windows" {
		outName += ".exe"
	}
	outputPath := filepath.Join(distDir, outName)
	printInfo(fmt.Sprintf("Building %s...", name))

	ldflags := []string{
		fmt.Sprintf("-X %s.BuildTime=%s", versionPkg, time.Now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("-X %s.GitCommit=%s", versionPkg, gitOutput("rev-parse", "--short", "HEAD")),
		fmt.Sprintf("-X %s.GitBranch=%s", versionPkg, gitOutput("rev-parse", "--abbrev-ref", "HEAD")),
	}
	if ctx.Release {
		ldflags = append([]string{"-s", "-w"}, ldflags...)
	}

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	if ctx.Release {
		args = append(args, "-trimpath")
	}
	args = append(args, "-ldflags", strings.Join(ldflags, " "), "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outName, float64(info.Size())/1024/1024))
	}
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean %s: %v", distDir, err))
		return
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

// copyConfigFiles ships the sample config next to the binaries when present.
func copyConfigFiles() {
	src := filepath.Join("configs", "config.yaml")
	data, err := os.ReadFile(src)
	if err != nil {
		if !os.IsNotExist(err) {
			printWarning(fmt.Sprintf("Failed to read %s: %v", src, err))
		}
		return
	}
	if err := os.WriteFile(filepath.Join(distDir, "config.yaml"), data, 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to copy config: %v", err))
	}
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       Build every executable (default)")
	fmt.Println("  web       Build the API server")
	fmt.Println("  analyze   Build the batch analysis CLI")
	fmt.Println("  clean     Remove build artifacts")
	fmt.Println("  test      Run all tests with the race detector")
	fmt.Println("  release   Clean, test and build stripped executables")
}
