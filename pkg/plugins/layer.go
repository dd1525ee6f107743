package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// UserConfigName is the file name of the user-global layer inside the
	// stanza home directory.
	UserConfigName = "plugins.yaml"
	// ProjectConfigDir is the per-project directory searched for on the
	// ancestor walk.
	ProjectConfigDir = ".stanza"

	// LayerUserGlobal names the lowest-precedence layer.
	LayerUserGlobal = "user-global"
)

// ConfigLayer is one parsed configuration file. Requests keep their in-file
// declaration order per namespace. Layers never mutate each other; precedence
// is applied only by Merge.
type ConfigLayer struct {
	// Name identifies the layer in errors and logs: "user-global" or
	// "project:<dir>".
	Name string
	// File is the path the layer was read from.
	File string
	// Requests maps namespace to declared requests in file order.
	Requests map[string][]PluginRequest
}

// Empty reports whether the layer declares no plugins.
func (c ConfigLayer) Empty() bool {
	for _, reqs := range c.Requests {
		if len(reqs) > 0 {
			return false
		}
	}
	return true
}

// Loader discovers and parses plugin configuration layers for one working
// directory.
type Loader struct {
	userFile string
	workDir  string
	log      *logrus.Logger
}

// NewLoader creates a loader reading the user-global file at userFile and
// project files discovered upward from workDir.
func NewLoader(userFile, workDir string, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}

	return &Loader{
		userFile: userFile,
		workDir:  workDir,
		log:      log,
	}
}

// DefaultUserConfigPath returns $STANZA_HOME/plugins.yaml, falling back to
// ~/.stanza/plugins.yaml.
func DefaultUserConfigPath() string {
	if home := os.Getenv("STANZA_HOME"); home != "" {
		return filepath.Join(home, UserConfigName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}
	return filepath.Join(homeDir, ProjectConfigDir, UserConfigName)
}

// Load discovers and parses every configuration layer, ordered lowest
// precedence first: the user-global file, then project files from the
// farthest ancestor down to the working directory. A missing file yields an
// empty layer; a malformed file rejects the whole load with a ConfigError.
func (l *Loader) Load() ([]ConfigLayer, error) {
	layers := make([]ConfigLayer, 0, 4)

	userLayer, err := l.loadFile(LayerUserGlobal, l.userFile)
	if err != nil {
		return nil, err
	}
	layers = append(layers, userLayer)

	projectFiles, err := l.projectFiles()
	if err != nil {
		return nil, err
	}

	for _, file := range projectFiles {
		name := fmt.Sprintf("project:%s", filepath.Dir(filepath.Dir(file)))
		layer, err := l.loadFile(name, file)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}

	return layers, nil
}

// projectFiles walks from the working directory to the filesystem root and
// returns existing .stanza/plugins.yaml paths ordered farthest ancestor
// first, so callers can append them in precedence order.
func (l *Loader) projectFiles() ([]string, error) {
	dir, err := filepath.Abs(l.workDir)
	if err != nil {
		return nil, newConfigError("", "", fmt.Sprintf("cannot resolve working directory %s", l.workDir), err)
	}

	userFile, _ := filepath.Abs(l.userFile)

	var found []string
	for {
		candidate := filepath.Join(dir, ProjectConfigDir, UserConfigName)
		if candidate != userFile {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				found = append(found, candidate)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Reverse: the walk sees the nearest directory first, but the nearest
	// layer must come last so it wins on merge.
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}

	return found, nil
}

func (l *Loader) loadFile(name, path string) (ConfigLayer, error) {
	layer := ConfigLayer{Name: name, File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.log.Debugf("Plugin config does not exist: %s", path)
			return layer, nil
		}
		return ConfigLayer{}, newConfigError(path, "", "cannot read file", err)
	}

	var doc configFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return layer, nil
		}
		return ConfigLayer{}, newConfigError(path, "", "invalid YAML", err)
	}

	layer.Requests = make(map[string][]PluginRequest, len(doc.Plugins))
	for namespace, entries := range doc.Plugins {
		reqs := make([]PluginRequest, 0, len(entries))
		for i, entry := range entries {
			req := PluginRequest{
				Namespace:   namespace,
				DisplayName: entry.Name,
				Package:     entry.Package,
				Constraint:  entry.Version,
				GitHub:      entry.GitHub,
				Ref:         entry.Ref,
				EntryPoint:  entry.Plugin,
				Layer:       name,
				File:        path,
			}
			if err := req.validate(); err != nil {
				return ConfigLayer{}, newConfigError(path, entryLabel(namespace, entry.Name, i), err.Error(), err)
			}
			reqs = append(reqs, req)
		}
		layer.Requests[namespace] = reqs
	}

	l.log.Debugf("Loaded plugin config %s: %d namespace(s)", path, len(layer.Requests))
	return layer, nil
}

func entryLabel(namespace, name string, index int) string {
	if name != "" {
		return fmt.Sprintf("%s/%s", namespace, name)
	}
	return fmt.Sprintf("%s[%d]", namespace, index)
}

type configFile struct {
	Plugins map[string][]configEntry `yaml:"plugins"`
}

type configEntry struct {
	Name    string `yaml:"name"`
	Package string `yaml:"package"`
	Version string `yaml:"version"`
	GitHub  string `yaml:"github"`
	Ref     string `yaml:"ref"`
	Plugin  string `yaml:"plugin"`
}
