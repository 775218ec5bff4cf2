// gtest runs every teeny program under tests/ through gtc and compares the outcome against
// the golden .<file>.json recorded next to it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mattn/go-isatty"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Input  string    `json:"input,omitempty"`
	Result Execution `json:"result"`
}

type TargetResult struct {
	SourceHash string     `json:"source_hash"`
	Compile    Execution  `json:"compile"`
	Output     string     `json:"output,omitempty"`
	Build      *Execution `json:"build,omitempty"`
	Runs       []TestRun  `json:"runs,omitempty"`
}

type FileTestResult struct {
	File    string        `json:"file"`
	Status  string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string        `json:"message,omitempty"`
	Diff    string        `json:"diff,omitempty"`
	Golden  *TargetResult `json:"golden,omitempty"`
	Target  *TargetResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./gtc", "Path to the gtc binary under test.")
	targetArgs     = flag.String("target-args", "", "Extra arguments for gtc (space-separated).")
	cCompiler      = flag.String("cc", "cc", "C compiler used to build and run the generated code.")
	generateGolden = flag.String("generate-golden", "", "Generate the golden .json file for a single source file.")
	update         = flag.Bool("update", false, "Regenerate the golden files of every matched test.")
	testFiles      = flag.String("test-files", "tests/*.teeny", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

var (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// Durations and hashes change from run to run; they never decide a result.
var compareOpts = []cmp.Option{
	cmpopts.IgnoreFields(Execution{}, "Duration"),
	cmpopts.IgnoreFields(TargetResult{}, "SourceHash"),
	cmpopts.EquateEmpty(),
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		cRed, cYellow, cGreen, cCyan, cBold, cNone = "", "", "", "", "", ""
	}

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		if err := writeGolden(*generateGolden, tempDir); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		return
	}

	if !handleRunTestSuite(tempDir) {
		os.Exit(1)
	}
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func writeGolden(sourceFile, tempDir string) error {
	fileHash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash source file %s: %w", sourceFile, err)
	}
	result, err := compileAndRun(sourceFile, tempDir, fileHash)
	if err != nil {
		return fmt.Errorf("could not generate golden file for %s: %w", sourceFile, err)
	}
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data: %w", err)
	}

	goldenFile := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFile, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", goldenFile, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFile)
	return nil
}

func handleRunTestSuite(tempDir string) bool {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return true
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	return !hasFailures(writeJSONReport(allResults))
}

func testFile(file, tempDir string) *FileTestResult {
	if *update {
		if err := writeGolden(file, tempDir); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file regenerated"}
	}

	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; create one with --generate-golden"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden TargetResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: "Failed to hash source file"}
	}
	target, err := compileAndRun(file, tempDir, fileHash)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error(), Golden: &golden, Target: target}
	}

	opts := compareOpts
	note := ""
	if _, err := exec.LookPath(*cCompiler); err != nil {
		opts = append(opts, cmpopts.IgnoreFields(TargetResult{}, "Build", "Runs"))
		note = fmt.Sprintf(" (runtime not checked, '%s' not found)", *cCompiler)
	}
	if golden.SourceHash != fileHash {
		note += " (golden was recorded for a different revision of the source)"
	}

	if diff := cmp.Diff(&golden, target, opts...); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs from golden file" + note, Diff: diff, Golden: &golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Matches golden file" + note, Golden: &golden, Target: target}
}

// executeCommand runs a command with a timeout and captures its output, optionally piping data to stdin
func executeCommand(ctx context.Context, command string, stdinData string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdinData != "" {
		cmd.Stdin = strings.NewReader(stdinData)
	}

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		execResult.TimedOut = true
		execResult.ExitCode = -1
	case errors.As(err, &exitErr):
		execResult.ExitCode = exitErr.ExitCode()
	case err != nil:
		execResult.ExitCode = -2
		execResult.Stderr += "\nExecution error: " + err.Error()
	}
	return execResult
}

// compileAndRun translates sourceFile with gtc, then, when a C compiler is available, builds
// the result and runs it with no input and with <source>.in as stdin when that file exists.
// A program gtc rejects is a valid outcome: its exit code and diagnostics are the result.
func compileAndRun(sourceFile, tempDir, hash string) (*TargetResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cPath := filepath.Join(tempDir, hash+".c")
	args := append([]string{"-o", cPath, "--no-color"}, strings.Fields(*targetArgs)...)
	args = append(args, sourceFile)

	compileResult := executeCommand(ctx, *targetCompiler, "", args...)
	compileResult.Stderr = strings.ReplaceAll(compileResult.Stderr, sourceFile, filepath.Base(sourceFile))
	result := &TargetResult{SourceHash: hash, Compile: compileResult}
	if compileResult.ExitCode == -2 {
		return result, fmt.Errorf("could not run %s: %s", *targetCompiler, strings.TrimSpace(compileResult.Stderr))
	}
	if compileResult.ExitCode != 0 || compileResult.TimedOut {
		return result, nil
	}

	output, err := os.ReadFile(cPath)
	if err != nil {
		return result, fmt.Errorf("compilation succeeded but no C file was written at %s", cPath)
	}
	result.Output = string(output)

	if _, err := exec.LookPath(*cCompiler); err != nil {
		return result, nil
	}

	binaryPath := filepath.Join(tempDir, hash)
	buildCtx, buildCancel := context.WithTimeout(context.Background(), *timeout)
	defer buildCancel()
	build := executeCommand(buildCtx, *cCompiler, "", "-w", "-o", binaryPath, cPath)
	build.Stderr = strings.ReplaceAll(build.Stderr, cPath, filepath.Base(sourceFile)+".c")
	result.Build = &build
	if build.ExitCode != 0 || build.TimedOut {
		return result, nil
	}

	testCases := map[string]string{"no_input": ""}
	if input, err := os.ReadFile(strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".in"); err == nil {
		testCases["input"] = string(input)
	}
	var names []string
	for name := range testCases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
		run := executeCommand(runCtx, binaryPath, testCases[name])
		runCancel()
		result.Runs = append(result.Runs, TestRun{Name: name, Input: testCases[name], Result: run})
		if *verbose {
			log.Printf("[%s] run %s: exit %d in %s", filepath.Base(sourceFile), name, run.ExitCode, run.Duration)
		}
	}
	return result, nil
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var totalCompile time.Duration
	var compiled int

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Target != nil {
			compiled++
			totalCompile += result.Target.Compile.Duration
			if *verbose {
				fmt.Printf("    compile: %s, exit %d\n", formatDuration(result.Target.Compile.Duration), result.Target.Compile.ExitCode)
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if compiled > 0 {
		fmt.Printf("Average compile time: %s\n", strings.TrimSpace(formatDuration(totalCompile/time.Duration(compiled))))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s (%s)\n", outputFile, humanize.Bytes(uint64(len(jsonData))))
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
