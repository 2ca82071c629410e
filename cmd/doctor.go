package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v2"

	"github.com/boifagusy/flashflow-sub000/internal/config"
	"github.com/boifagusy/flashflow-sub000/internal/flow"
	"github.com/boifagusy/flashflow-sub000/internal/project"
	"github.com/boifagusy/flashflow-sub000/internal/renderer"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the project and development environment",
	Long: `Diagnose the FlashFlow project in the current directory and the
environment it runs in. The doctor checks for:

- A valid flashflow.json manifest
- Flow files that parse and render cleanly
- Availability of the build and rendering-engine binaries
- Port conflicts on the configured server and engine ports
- Configuration issues

Examples:
  flashflow doctor                  # Full diagnosis
  flashflow doctor --verbose        # Include details and effective config
  flashflow doctor --format json    # Output as JSON for tooling
  flashflow doctor --format yaml    # Output as YAML`,
	RunE: runDoctor,
}

var (
	doctorVerbose bool
	doctorFormat  string
)

// DiagnosticResult represents the result of a diagnostic check
type DiagnosticResult struct {
	Name       string         `json:"name" yaml:"name"`
	Category   string         `json:"category" yaml:"category"`
	Status     string         `json:"status" yaml:"status"` // "ok", "warning", "error", "info"
	Message    string         `json:"message" yaml:"message"`
	Suggestion string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
	Summary     ReportSummary      `json:"summary" yaml:"summary"`
	Config      *config.Config     `json:"config,omitempty" yaml:"config,omitempty"`
}

// ReportSummary provides an overview of diagnostic results
type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Info     int `json:"info" yaml:"info"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show verbose diagnostic information")
	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", "table", "Output format (table|json|yaml)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, cfgErr := config.Load()

	report := &DoctorReport{
		Timestamp:   time.Now(),
		Environment: gatherEnvironmentInfo(),
		Results:     []DiagnosticResult{},
		Config:      cfg,
	}

	checks := []func(context.Context, *config.Config) DiagnosticResult{
		checkConfiguration(cfgErr),
		checkManifest,
		checkFlows,
		checkBuildCommand,
		checkEngineBinary,
		checkPorts,
	}

	if doctorFormat == "table" {
		fmt.Println("🔍 FlashFlow Doctor")
		fmt.Println("===================")
		fmt.Println()
	}

	for _, check := range checks {
		result := check(ctx, cfg)
		report.Results = append(report.Results, result)
		if doctorFormat == "table" {
			displayResult(result)
		}
	}

	report.Summary = calculateSummary(report.Results)

	switch doctorFormat {
	case "table":
		displaySummary(report.Summary)
		if doctorVerbose && cfg != nil {
			fmt.Println("\n📋 Effective Configuration")
			fmt.Println("==========================")
			encoder := yaml.NewEncoder(os.Stdout)
			if err := encoder.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			encoder.Close()
		}
		return nil
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", doctorFormat)
	}
}

func gatherEnvironmentInfo() map[string]string {
	env := map[string]string{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
	}
	if wd, err := os.Getwd(); err == nil {
		env["working_dir"] = wd
	}
	return env
}

// checkConfiguration reports on the loaded configuration; the load error
// is captured up front because every other check shares the config.
func checkConfiguration(loadErr error) func(context.Context, *config.Config) DiagnosticResult {
	return func(ctx context.Context, cfg *config.Config) DiagnosticResult {
		result := DiagnosticResult{
			Name:     "Configuration",
			Category: "Configuration",
			Status:   "ok",
		}

		if loadErr != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Configuration has errors: %v", loadErr)
			result.Suggestion = "Fix .flashflow.yml or remove it to fall back to defaults"
			return result
		}

		if _, err := os.Stat(".flashflow.yml"); os.IsNotExist(err) {
			result.Status = "info"
			result.Message = "No .flashflow.yml found, using defaults"
			result.Suggestion = "Create .flashflow.yml to customize ports, build command, and watch settings"
			return result
		}

		result.Message = "Configuration is valid"
		result.Details = map[string]any{
			"server_port":   cfg.Server.Port,
			"engine_port":   cfg.Engine.Port,
			"build_command": cfg.Build.Command,
			"debounce":      cfg.Watch.Debounce.String(),
			"extensions":    cfg.Watch.Extensions,
		}
		return result
	}
}

func checkManifest(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Project Manifest",
		Category: "Project",
		Status:   "ok",
	}

	wd, err := os.Getwd()
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return result
	}

	proj, err := project.Load(wd)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Not a FlashFlow project: %v", err)
		result.Suggestion = "Create a flashflow.json manifest in the project root"
		return result
	}

	result.Message = fmt.Sprintf("Project %q is valid", proj.Name())
	result.Details = map[string]any{
		"manifest":  proj.ManifestPath,
		"flows_dir": proj.FlowsDir,
		"dist_dir":  proj.DistDir,
	}
	return result
}

func checkFlows(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Flow Files",
		Category: "Project",
		Status:   "ok",
	}

	wd, err := os.Getwd()
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return result
	}
	proj, err := project.Load(wd)
	if err != nil {
		result.Status = "info"
		result.Message = "Skipped, no valid project"
		return result
	}

	cache, err := flow.NewCache(flow.DefaultCacheSize)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return result
	}
	resolver := flow.NewResolver(proj.FlowsDir, cache)
	files, err := resolver.List()
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Listing flow files failed: %v", err)
		return result
	}
	if len(files) == 0 {
		result.Status = "warning"
		result.Message = "No flow files found"
		result.Suggestion = fmt.Sprintf("Create %s/app.flow to get a first page", proj.FlowsDir)
		return result
	}

	pages := renderer.New(proj.Name())
	var broken, unknown []string
	rendered := 0
	for _, file := range files {
		doc, err := cache.Load(file)
		if err != nil {
			broken = append(broken, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		page, err := pages.RenderPage(ctx, doc, "")
		if err != nil {
			broken = append(broken, fmt.Sprintf("%s: render: %v", file, err))
			continue
		}
		rendered++
		unknown = append(unknown, auditUnknownComponents(page)...)
	}

	result.Details = map[string]any{
		"files":    len(files),
		"rendered": rendered,
	}
	switch {
	case len(broken) > 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("%d of %d flow files are broken", len(broken), len(files))
		result.Suggestion = strings.Join(broken, "\n")
	case len(unknown) > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("All %d flow files render, but %d unknown components found", len(files), len(unknown))
		result.Suggestion = "Unknown component types render as placeholders: " + strings.Join(unknown, ", ")
	default:
		result.Message = fmt.Sprintf("All %d flow files parse and render", len(files))
	}
	return result
}

// auditUnknownComponents walks rendered page markup and collects the
// placeholder notices the renderer emits for unrecognized types.
func auditUnknownComponents(page string) []string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var found []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "class" && strings.Contains(attr.Val, "ff-unknown") {
					text := nodeText(n)
					text = strings.TrimPrefix(text, "Unknown component: ")
					found = append(found, strings.TrimSpace(text))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func checkBuildCommand(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Build Command",
		Category: "Tools",
		Status:   "ok",
	}
	if cfg == nil {
		result.Status = "info"
		result.Message = "Skipped, configuration did not load"
		return result
	}

	command := strings.Fields(cfg.Build.Command)
	if len(command) == 0 {
		result.Status = "error"
		result.Message = "Build command is empty"
		return result
	}

	path, err := exec.LookPath(command[0])
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Build command %q not found on PATH", command[0])
		result.Suggestion = "Builds will fail until it is installed; the dev server still serves pages"
		return result
	}

	result.Message = fmt.Sprintf("Build command found: %s", path)
	result.Details = map[string]any{"command": cfg.Build.Command, "path": path}
	return result
}

func checkEngineBinary(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Rendering Engine",
		Category: "Tools",
		Status:   "ok",
	}
	if cfg == nil {
		result.Status = "info"
		result.Message = "Skipped, configuration did not load"
		return result
	}

	command := strings.Fields(cfg.Engine.Command)
	if len(command) == 0 {
		result.Status = "warning"
		result.Message = "Engine command is empty"
		return result
	}

	path, err := exec.LookPath(command[0])
	if err != nil {
		result.Status = "info"
		result.Message = fmt.Sprintf("Engine binary %q not found on PATH", command[0])
		result.Suggestion = "The direct renderer serves pages without it; install the engine for native previews"
		return result
	}

	result.Message = fmt.Sprintf("Engine binary found: %s", path)
	result.Details = map[string]any{"command": cfg.Engine.Command, "path": path}
	return result
}

func checkPorts(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Port Availability",
		Category: "Network",
		Status:   "ok",
	}
	if cfg == nil {
		result.Status = "info"
		result.Message = "Skipped, configuration did not load"
		return result
	}

	conflicts := []int{}
	for _, port := range []int{cfg.Server.Port, cfg.Engine.Port} {
		if port > 0 && !isPortAvailable(port) {
			conflicts = append(conflicts, port)
		}
	}

	if len(conflicts) == 0 {
		result.Message = fmt.Sprintf("Ports %d and %d are available", cfg.Server.Port, cfg.Engine.Port)
		return result
	}

	result.Status = "warning"
	result.Message = fmt.Sprintf("Port conflicts detected: %v", conflicts)
	result.Suggestion = "Stop the conflicting service or serve with --port / FLASHFLOW_PORT"
	return result
}

func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

func displayResult(result DiagnosticResult) {
	var icon string
	switch result.Status {
	case "ok":
		icon = "✅"
	case "warning":
		icon = "⚠️"
	case "error":
		icon = "❌"
	case "info":
		icon = "ℹ️"
	default:
		icon = "•"
	}

	fmt.Printf("%s [%s] %s: %s\n", icon, strings.ToUpper(result.Category), result.Name, result.Message)
	if result.Suggestion != "" {
		fmt.Printf("   💡 %s\n", result.Suggestion)
	}
	if doctorVerbose && len(result.Details) > 0 {
		fmt.Printf("   📋 Details: %+v\n", result.Details)
	}
	fmt.Println()
}

func calculateSummary(results []DiagnosticResult) ReportSummary {
	summary := ReportSummary{Total: len(results)}
	for _, result := range results {
		switch result.Status {
		case "ok":
			summary.OK++
		case "warning":
			summary.Warnings++
		case "error":
			summary.Errors++
		case "info":
			summary.Info++
		}
	}
	return summary
}

func displaySummary(summary ReportSummary) {
	fmt.Println("📊 Summary")
	fmt.Println("==========")
	fmt.Printf("Total Checks: %d\n", summary.Total)
	fmt.Printf("✅ OK: %d\n", summary.OK)
	fmt.Printf("⚠️  Warnings: %d\n", summary.Warnings)
	fmt.Printf("❌ Errors: %d\n", summary.Errors)
	fmt.Printf("ℹ️  Info: %d\n", summary.Info)
}
