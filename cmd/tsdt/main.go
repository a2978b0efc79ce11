package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/cdisc"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/config"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/conformance"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/depgraph"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/logger"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/report"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/semantics"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/standards"
)

func main() {
	if len(os.Args) < 2 {
		logger.Println("Usage: tsdt <command> [arguments]")
		logger.Println("Commands: check, deps, rules, standards")
		logger.Println("  check [-report report.db] [-project root] <snapshot.json>")
		logger.Println("  deps <snapshot.json> <name>")
		logger.Println("  rules [-project root]")
		logger.Println("  standards")
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "check":
		runCheck(os.Args[2:])
	case "deps":
		runDeps(os.Args[2:])
	case "rules":
		runRules(os.Args[2:])
	case "standards":
		runStandards()
	default:
		logger.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// buildValidator assembles the registry and rule engine from the
// builtin data plus whatever the layered config adds.
func buildValidator(cfg *config.Config) (*cdisc.Validator, error) {
	var overlays [][]byte
	for _, path := range cfg.StandardsOverlays {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("standards overlay %s: %w", path, err)
		}
		overlays = append(overlays, content)
	}
	registry, err := standards.LoadDefault(overlays...)
	if err != nil {
		return nil, err
	}

	validator, err := cdisc.New(registry)
	if err != nil {
		return nil, err
	}

	for _, path := range cfg.RuleSets {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: %w", path, err)
		}
		rules, err := conformance.ParseRuleSetYAML(content)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: %w", path, err)
		}
		validator.Engine().AddRules(rules)
	}
	return validator, nil
}

func analyzerOptions(cfg *config.Config) semantics.Options {
	overrides := make(map[string]conformance.Severity, len(cfg.SeverityOverrides))
	for id, sev := range cfg.SeverityOverrides {
		overrides[id] = conformance.Severity(sev)
	}
	return semantics.Options{
		DisabledRules:     cfg.Disabled(),
		SeverityOverrides: overrides,
	}
}

func loadProgram(path string) *ast.Program {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Fatalf("Error reading %s: %v", path, err)
	}
	program, err := ast.DecodeSnapshot(content)
	if err != nil {
		logger.Fatalf("Error decoding %s: %v", path, err)
	}
	return program
}

func runCheck(args []string) {
	var reportPath, projectRoot, snapshotPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-report":
			if i+1 >= len(args) {
				logger.Fatal("Error: -report requires a file path")
			}
			reportPath = args[i+1]
			i++
		case "-project":
			if i+1 >= len(args) {
				logger.Fatal("Error: -project requires a directory")
			}
			projectRoot = args[i+1]
			i++
		default:
			snapshotPath = args[i]
		}
	}
	if snapshotPath == "" {
		logger.Fatal("Usage: tsdt check [-report report.db] [-project root] <snapshot.json>")
	}

	cfg := config.LoadFull(projectRoot)
	validator, err := buildValidator(cfg)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	program := loadProgram(snapshotPath)
	analyzer := semantics.NewAnalyzer(validator, analyzerOptions(cfg))
	analyzer.ValidateProgram(context.Background(), program)

	errors := 0
	for _, d := range analyzer.Diagnostics {
		level := "warning"
		if d.Level == semantics.LevelError {
			level = "error"
			errors++
		}
		fmt.Printf("%s: %s", level, d.Message)
		if d.Element != "" {
			fmt.Printf(" (%s)", d.Element)
		}
		fmt.Println()
	}

	if reportPath != "" {
		store, err := report.Open(reportPath)
		if err != nil {
			logger.Fatalf("Error: %v", err)
		}
		defer store.Close()
		if _, err := store.RecordRun(snapshotPath, analyzer.Diagnostics); err != nil {
			logger.Fatalf("Error writing report: %v", err)
		}
	}

	if errors > 0 {
		os.Exit(1)
	}
	fmt.Printf("OK: %d element(s), %d warning(s)\n",
		len(program.Elements), len(analyzer.Diagnostics)-errors)
}

func runDeps(args []string) {
	if len(args) < 2 {
		logger.Fatal("Usage: tsdt deps <snapshot.json> <name>")
	}
	program := loadProgram(args[0])
	name := args[1]

	graph := depgraph.Build(program)
	if _, ok := graph[name]; !ok {
		logger.Fatalf("Unknown element: %s", name)
	}

	fmt.Printf("%s depends on:\n", name)
	for _, dep := range depgraph.TransitiveDependencies(name, graph) {
		fmt.Printf("  %s\n", dep)
	}
	fmt.Printf("%s is referenced by:\n", name)
	for _, dep := range depgraph.ReverseDependencies(name, graph) {
		fmt.Printf("  %s\n", dep)
	}
}

func runRules(args []string) {
	var projectRoot string
	for i := 0; i < len(args); i++ {
		if args[i] == "-project" && i+1 < len(args) {
			projectRoot = args[i+1]
			i++
		}
	}

	cfg := config.LoadFull(projectRoot)
	validator, err := buildValidator(cfg)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	for _, rule := range validator.Engine().Rules() {
		scope := "all"
		if len(rule.AppliesTo) > 0 {
			scope = fmt.Sprintf("%v", rule.AppliesTo)
		}
		fmt.Printf("%-8s %-7s %-22s %s (%s)\n",
			rule.ID, rule.Severity, rule.CheckerType, rule.Description, scope)
	}
}

func runStandards() {
	registry, err := standards.LoadDefault()
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
	fmt.Printf("%d SDTM domain(s), %d ADaM dataset(s) registered\n",
		registry.DomainCount(), registry.DatasetCount())
}
