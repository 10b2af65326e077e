// Package config loads the kiln project description.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the project for cwd. An explicit path must exist. Without one, cwd and its parents
// are searched for kiln.yaml; when none is found the built-in layout rooted at cwd is used.
func (l *Loader) Load(cwd, path string) (*domain.Project, error) {
	configPath, err := l.findConfiguration(cwd, path)
	if err != nil {
		return nil, err
	}

	var project *domain.Project
	if configPath == "" {
		project = domain.DefaultProject(cwd)
	} else {
		project, err = l.loadKilnfile(configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}
	return project, nil
}

func (l *Loader) findConfiguration(cwd, path string) (string, error) {
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", zerr.With(domain.ErrConfigNotFound, "path", path)
		}
		return path, nil
	}

	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

func (l *Loader) loadKilnfile(configPath string) (*domain.Project, error) {
	var file Kilnfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, err
	}

	if file.Version != "" && file.Version != domain.ConfigVersion {
		return nil, zerr.With(domain.ErrUnsupportedConfigVersion, "version", file.Version)
	}

	root := filepath.Dir(configPath)
	project := domain.DefaultProject(root)

	applyToolchain(project, file.Toolchain)
	applyBuild(project, root, file.Build)
	applyTargets(project, root, file.Targets)
	applyTests(project, root, file.Tests)
	applyFchk(project, root, file.Fchk)

	if file.Build != nil && len(file.Build.Sources) == 1 {
		l.Logger.Warn("only one source unit configured, the fuzzer will link without library objects")
	}

	return project, nil
}

func applyToolchain(p *domain.Project, dto *ToolchainDTO) {
	if dto == nil {
		return
	}
	if dto.Compiler != "" {
		p.Toolchain.Compiler = dto.Compiler
	}
	if dto.Flags != nil {
		p.Toolchain.Flags = dto.Flags
	}
	if dto.Sanitize != nil {
		p.Toolchain.Sanitize = *dto.Sanitize
	}
}

func applyBuild(p *domain.Project, root string, dto *BuildDTO) {
	if dto == nil {
		return
	}
	if dto.Dir != "" {
		p.BuildDir = resolvePath(root, dto.Dir)
	}
	if dto.ObjectDir != "" {
		p.ObjectDir = dto.ObjectDir
	}
	if dto.Headers != "" {
		p.HeadersDir = resolvePath(root, dto.Headers)
	}
	if dto.Sources != nil {
		p.Sources = make([]domain.SourceUnit, len(dto.Sources))
		for i, src := range dto.Sources {
			p.Sources[i] = domain.SourceUnit(resolvePath(root, src))
		}
	}
}

func applyTargets(p *domain.Project, root string, dto *TargetsDTO) {
	if dto == nil {
		return
	}
	if dto.Driver != nil && dto.Driver.Name != "" {
		p.Driver.Name = dto.Driver.Name
	}
	if r := dto.TestRunner; r != nil {
		p.TestRunner.Name = orDefault(r.Name, p.TestRunner.Name)
		if r.Source != "" {
			p.TestRunner.Source = resolvePath(root, r.Source)
		}
	}
	if f := dto.Fuzzer; f != nil {
		p.Fuzzer.Name = orDefault(f.Name, p.Fuzzer.Name)
		p.Fuzzer.Flag = orDefault(f.Flag, p.Fuzzer.Flag)
		if f.Source != "" {
			p.Fuzzer.Source = resolvePath(root, f.Source)
		}
		if f.Corpus != "" {
			p.Fuzzer.Corpus = resolvePath(root, f.Corpus)
		}
	}
}

func applyTests(p *domain.Project, root string, dto *TestsDTO) {
	if dto == nil {
		return
	}
	if dto.Dir != "" {
		p.Tests.Dir = resolvePath(root, dto.Dir)
	}
	p.Tests.Extension = orDefault(dto.Extension, p.Tests.Extension)
	if dto.NoExecMarker != nil {
		p.Tests.NoExecMarker = *dto.NoExecMarker
	}
}

func applyFchk(p *domain.Project, root string, dto *FchkDTO) {
	if dto == nil {
		return
	}
	if dto.OutDir != "" {
		p.Fchk = domain.DefaultFchk(root, resolvePath(root, dto.OutDir))
	}
	if dto.Configure != nil {
		p.Fchk.Configure = dto.Configure
	}
	if dto.Build != nil {
		p.Fchk.Build = dto.Build
	}
	if dto.Run != nil {
		p.Fchk.Run = dto.Run
	}
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zerr.With(domain.ErrConfigNotFound, "path", configPath)
		}
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	decoder := yaml.NewDecoder(bytes.NewReader(configFile))
	decoder.KnownFields(true)
	if parseErr := decoder.Decode(target); parseErr != nil && !errors.Is(parseErr, io.EOF) {
		return zerr.With(zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error()), "path", configPath)
	}

	return nil
}
