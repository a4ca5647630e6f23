package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

// CommandData is what the compile command template can refer to
type CommandData struct {
	Project   string
	Entry     string
	Dialect   types.Dialect
	SourceDir string
	OutDir    string
}

// Exec compiles by writing a tsconfig for the entry point and running an
// external compiler command, e.g. ngc
type Exec struct {
	pkg     *types.PackageDescriptor
	command *template.Template
	logDir  string
	log     logger.Logger
}

// NewExec parses the command template. Output of each run is appended to a
// log file per entry point and dialect below the package's temp directory.
func NewExec(pkg *types.PackageDescriptor, command string, log logger.Logger) (*Exec, error) {
	tmpl, err := template.New("compile").Option("missingkey=error").Parse(command)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid compile command: %w", types.ErrConfiguration, err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Exec{
		pkg:     pkg,
		command: tmpl,
		logDir:  filepath.Join(pkg.TempDir, "logs"),
		log:     log,
	}, nil
}

type tsCompilerOptions struct {
	Declaration            bool                `json:"declaration"`
	StripInternal          bool                `json:"stripInternal"`
	ExperimentalDecorators bool                `json:"experimentalDecorators"`
	NoUnusedParameters     bool                `json:"noUnusedParameters"`
	StrictNullChecks       bool                `json:"strictNullChecks"`
	ImportHelpers          bool                `json:"importHelpers"`
	NewLine                string              `json:"newLine"`
	Module                 string              `json:"module"`
	ModuleResolution       string              `json:"moduleResolution"`
	OutDir                 string              `json:"outDir"`
	RootDir                string              `json:"rootDir"`
	SourceMap              bool                `json:"sourceMap"`
	InlineSources          bool                `json:"inlineSources"`
	Target                 string              `json:"target"`
	Lib                    []string            `json:"lib"`
	SkipLibCheck           bool                `json:"skipLibCheck"`
	Types                  []string            `json:"types"`
	BaseURL                string              `json:"baseUrl"`
	Paths                  map[string][]string `json:"paths"`
}

type angularCompilerOptions struct {
	AnnotateForClosureCompiler bool   `json:"annotateForClosureCompiler"`
	StrictMetadataEmit         bool   `json:"strictMetadataEmit"`
	FlatModuleOutFile          string `json:"flatModuleOutFile"`
	FlatModuleID               string `json:"flatModuleId"`
	SkipTemplateCodegen        bool   `json:"skipTemplateCodegen"`
	FullTemplateTypeCheck      bool   `json:"fullTemplateTypeCheck"`
}

type tsconfig struct {
	CompilerOptions        tsCompilerOptions      `json:"compilerOptions"`
	Files                  []string               `json:"files"`
	AngularCompilerOptions angularCompilerOptions `json:"angularCompilerOptions"`
}

// Tsconfig returns the compiler configuration of one entry point and dialect
func (c *Exec) Tsconfig(req Request) ([]byte, error) {
	ep := req.Entry
	cfg := tsconfig{
		CompilerOptions: tsCompilerOptions{
			Declaration:            true,
			ExperimentalDecorators: true,
			NoUnusedParameters:     true,
			StrictNullChecks:       true,
			ImportHelpers:          true,
			NewLine:                "lf",
			Module:                 "es2015",
			ModuleResolution:       "node",
			OutDir:                 req.OutDir,
			RootDir:                ep.SourceDir,
			SourceMap:              true,
			InlineSources:          true,
			Target:                 string(req.Dialect),
			Lib:                    []string{"es2015", "dom"},
			SkipLibCheck:           true,
			Types:                  []string{},
			BaseURL:                ep.SourceDir,
			Paths: map[string][]string{
				c.pkg.ImportName() + "/*": {filepath.Join(c.pkg.PackagesTemp, "*")},
			},
		},
		Files: []string{ep.EntryFile},
		AngularCompilerOptions: angularCompilerOptions{
			AnnotateForClosureCompiler: true,
			StrictMetadataEmit:         true,
			FlatModuleOutFile:          "index.js",
			FlatModuleID:               c.pkg.ImportPath(ep.ID),
			SkipTemplateCodegen:        true,
			FullTemplateTypeCheck:      true,
		},
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Compile implements Compiler
func (c *Exec) Compile(ctx context.Context, req Request) error {
	ep := req.Entry
	stem := c.stem(ep) + "." + string(req.Dialect)

	project := filepath.Join(c.pkg.TempDir, "tsconfig", stem+".json")
	data, err := c.Tsconfig(req)
	if err != nil {
		return err
	}
	if err := utils.WriteFile(project, data); err != nil {
		return types.FilesystemError("write", project, err)
	}

	var command bytes.Buffer
	err = c.command.Execute(&command, CommandData{
		Project:   project,
		Entry:     ep.ID,
		Dialect:   req.Dialect,
		SourceDir: ep.SourceDir,
		OutDir:    req.OutDir,
	})
	if err != nil {
		return fmt.Errorf("failed to render compile command: %w", err)
	}

	logFile, err := c.prepareLogFile(stem)
	if err != nil {
		c.log.Warn(fmt.Sprintf("Failed to create log file: %v", err))
	}
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()

	startTime := time.Now()
	logToFile(logFile, fmt.Sprintf("\n=== Compile Started at %s ===\n", startTime.Format("2006-01-02 15:04:05")))
	logToFile(logFile, fmt.Sprintf("Executing: %s\n", command.String()))

	cmd := createCommand(ctx, command.String())
	cmd.Dir = c.pkg.SourceRoot

	var output bytes.Buffer
	var w io.Writer = &output
	if logFile != nil {
		w = io.MultiWriter(&output, logFile)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		logToFile(logFile, fmt.Sprintf("\n=== Compile FAILED after %s ===\n", time.Since(startTime)))
		return fmt.Errorf("%s: %w\n%s", command.String(), err, strings.TrimSpace(output.String()))
	}
	logToFile(logFile, fmt.Sprintf("\n=== Compile SUCCEEDED after %s ===\n", time.Since(startTime)))

	if output.Len() > 0 {
		c.log.Debug("Compiler output", logger.WithField("output", strings.TrimSpace(output.String())))
	}

	index := filepath.Join(req.OutDir, "index.js")
	if !utils.FileExists(index) {
		return fmt.Errorf("compiler did not produce %s", index)
	}
	return nil
}

func (c *Exec) stem(ep *types.EntryPoint) string {
	if ep.IsPrimary() {
		return c.pkg.Name
	}
	return c.pkg.Name + "-" + ep.ID
}

// createCommand runs command through the shell when it uses shell operators
func createCommand(ctx context.Context, command string) *exec.Cmd {
	if strings.ContainsAny(command, "&|;<>$`") {
		return exec.CommandContext(ctx, "sh", "-c", command)
	}
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return exec.CommandContext(ctx, "sh", "-c", command)
	}
	return exec.CommandContext(ctx, parts[0], parts[1:]...)
}

func (c *Exec) prepareLogFile(stem string) (*os.File, error) {
	if err := os.MkdirAll(c.logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(c.logDir, stem+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logFile, nil
}

func logToFile(logFile *os.File, message string) {
	if logFile != nil {
		logFile.WriteString(message)
	}
}
