package invocation

import (
	"fmt"

	"github.com/google/uuid"
)

// CommandKind identifies the build-tool command being executed.
type CommandKind string

const (
	// CommandBuild compiles the top-level package.
	CommandBuild CommandKind = "build"
	// CommandTest builds and runs test suites.
	CommandTest CommandKind = "test"
	// CommandExec runs a command in the project environment.
	CommandExec CommandKind = "exec"
	// CommandInstall installs the package as a dependency or global tool.
	CommandInstall CommandKind = "install"
	// CommandSDist produces a source distribution for publishing.
	CommandSDist CommandKind = "sdist"
)

// Role states why the package is being processed.
type Role string

const (
	// RoleTopLevel marks the package the user invoked the tool against.
	RoleTopLevel Role = "top-level"
	// RoleDependency marks a package built because something else needs it.
	RoleDependency Role = "dependency"
)

// Context describes one invocation of the tool. It is created once by the
// CLI layer and read, never mutated, by everything downstream.
type Context struct {
	// ID correlates logs, metrics, and traces for this invocation.
	ID string
	// Command is the command the user issued.
	Command CommandKind
	// Role states whether the package under consideration is the top-level
	// target or a transitive dependency.
	Role Role
	// WorkDir is the directory the tool was invoked from.
	WorkDir string
}

// NewContext creates a Context with a fresh invocation ID.
func NewContext(command CommandKind, role Role, workDir string) Context {
	return Context{
		ID:      uuid.New().String(),
		Command: command,
		Role:    role,
		WorkDir: workDir,
	}
}

// Decision is the result of classifying an invocation. Reason is always set,
// so logs explain eligible and ineligible runs alike.
type Decision struct {
	Eligible bool
	Reason   string
}

// Classify decides whether the invocation may inject plugins. It is a pure
// function of the Context; callers must not inject when Eligible is false.
func Classify(inv Context) Decision {
	switch inv.Command {
	case CommandBuild, CommandTest, CommandExec:
		// Development commands qualify; the role still has to match.
	case CommandInstall, CommandSDist:
		return Decision{
			Eligible: false,
			Reason:   fmt.Sprintf("packaging command %q never injects plugins", inv.Command),
		}
	default:
		return Decision{
			Eligible: false,
			Reason:   fmt.Sprintf("command %q does not inject plugins", inv.Command),
		}
	}

	if inv.Role != RoleTopLevel {
		return Decision{
			Eligible: false,
			Reason:   "package is built as a dependency of another package",
		}
	}

	return Decision{
		Eligible: true,
		Reason:   fmt.Sprintf("development command %q against the top-level package", inv.Command),
	}
}
