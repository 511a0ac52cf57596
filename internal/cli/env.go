package cli

import (
	"fmt"
	"log"

	"github.com/dshills/sherpa/internal/config"
)

// env is the effective configuration for one command invocation.
type env struct {
	cfg     config.Config
	cfgPath string
	// workDir is the registered project path, or empty for the current
	// directory.
	workDir string
	project string
	logger  *log.Logger
}

// loadEnv resolves --project and --config and merges overrides. Project
// overrides apply after env vars and before command flags.
func loadEnv(overrides map[string]string) (*env, error) {
	e := &env{logger: newLogger(flagVerbose)}

	var proj *config.Project
	if flagProject != "" {
		p, err := lookupProject(flagProject)
		if err != nil {
			return nil, err
		}
		if !p.Exists() {
			return nil, fmt.Errorf("project %s: path %s does not exist", flagProject, p.Path)
		}
		proj = &p
		e.workDir = p.Path
		e.project = flagProject
	}

	if flagFormat != "" {
		if overrides == nil {
			overrides = map[string]string{}
		}
		overrides["output.default_format"] = flagFormat
	}

	cfg, path, err := config.Load(e.workDir, flagConfig, nil)
	if err != nil {
		return nil, err
	}
	if proj != nil {
		proj.Apply(&cfg)
	}
	if err := config.ApplyOverrides(&cfg, overrides); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e.cfg = cfg
	e.cfgPath = path
	if path != "" {
		e.logger.Printf("Loaded config from %s", path)
	}
	if e.project != "" {
		e.logger.Printf("Using project %s at %s", e.project, e.workDir)
	}
	return e, nil
}

func lookupProject(name string) (config.Project, error) {
	reg, err := openProjects()
	if err != nil {
		return config.Project{}, err
	}
	return reg.Get(name)
}

func openProjects() (*config.Projects, error) {
	path, err := config.ProjectsPath()
	if err != nil {
		return nil, err
	}
	return config.LoadProjects(path)
}
