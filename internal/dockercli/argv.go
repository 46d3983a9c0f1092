// Package dockercli maps approved command identifiers onto docker CLI
// invocations and runs them without a shell.
package dockercli

import (
	"fmt"
	"strings"
)

// shellMarkers are rescanned right before process launch. The validator has
// already rejected these upstream; a mapping bug must not reintroduce them.
var shellMarkers = []string{";", "&&", "||", "|", "`", "$("}

// Argv builds the docker argv (without the binary) for a command identifier.
// Unknown identifiers and identifiers for operations that must never run
// return an error.
func Argv(command string, args map[string]string) ([]string, error) {
	switch command {

	// read-only
	case "listContainers":
		argv := []string{"ps", "--format", "json"}
		if args["all"] == "true" {
			argv = append(argv, "--all")
		}
		if f := args["filter"]; f != "" {
			argv = append(argv, "--filter", f)
		}
		return argv, nil
	case "listImages":
		return []string{"images", "--format", "json"}, nil
	case "listNetworks":
		return []string{"network", "ls", "--format", "json"}, nil
	case "listVolumes":
		return []string{"volume", "ls", "--format", "json"}, nil
	case "inspectContainer":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			return []string{"inspect", "--type", "container", a["container"]}
		})
	case "inspectImage":
		return requireArgs(args, []string{"image"}, func(a map[string]string) []string {
			return []string{"inspect", "--type", "image", a["image"]}
		})
	case "inspectNetwork":
		return requireArgs(args, []string{"network"}, func(a map[string]string) []string {
			return []string{"network", "inspect", a["network"]}
		})
	case "inspectVolume":
		return requireArgs(args, []string{"volume"}, func(a map[string]string) []string {
			return []string{"volume", "inspect", a["volume"]}
		})
	case "containerLogs":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			tail := a["tail"]
			if tail == "" {
				tail = "100"
			}
			return []string{"logs", "--tail", tail, a["container"]}
		})
	case "containerStats":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			return []string{"stats", "--no-stream", a["container"]}
		})
	case "systemInfo":
		return []string{"info", "--format", "json"}, nil
	case "dockerVersion":
		return []string{"version", "--format", "json"}, nil
	case "composePs":
		return []string{"compose", "ps"}, nil
	case "composeLogs":
		return []string{"compose", "logs"}, nil

	// lifecycle
	case "startContainer":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			return []string{"start", a["container"]}
		})
	case "stopContainer":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			return []string{"stop", "--timeout", timeoutOrDefault(a), a["container"]}
		})
	case "restartContainer":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			return []string{"restart", "--timeout", timeoutOrDefault(a), a["container"]}
		})
	case "runContainer":
		return requireArgs(args, []string{"image"}, func(a map[string]string) []string {
			argv := []string{"run", "--detach"}
			if name := a["name"]; name != "" {
				argv = append(argv, "--name", name)
			}
			if ports := a["ports"]; ports != "" {
				argv = append(argv, "--publish", ports)
			}
			return append(argv, a["image"])
		})
	case "execInContainer":
		if args["container"] == "" || args["cmd"] == "" {
			return nil, fmt.Errorf("%s requires container and cmd arguments", command)
		}
		argv := []string{"exec", args["container"]}
		return append(argv, strings.Fields(args["cmd"])...), nil

	// image and resource management
	case "pullImage":
		return requireArgs(args, []string{"image"}, func(a map[string]string) []string {
			return []string{"pull", imageRef(a)}
		})
	case "buildImage":
		return requireArgs(args, []string{"tag", "path"}, func(a map[string]string) []string {
			return []string{"build", "--tag", a["tag"], a["path"]}
		})
	case "tagImage":
		return requireArgs(args, []string{"image", "repository"}, func(a map[string]string) []string {
			target := a["repository"]
			if tag := a["tag"]; tag != "" {
				target += ":" + tag
			}
			return []string{"tag", a["image"], target}
		})
	case "removeContainer":
		return requireArgs(args, []string{"container"}, func(a map[string]string) []string {
			argv := []string{"rm"}
			if a["force"] == "true" {
				argv = append(argv, "--force")
			}
			if a["volumes"] == "true" {
				argv = append(argv, "--volumes")
			}
			return append(argv, a["container"])
		})
	case "removeImage":
		return requireArgs(args, []string{"image"}, func(a map[string]string) []string {
			argv := []string{"rmi"}
			if a["force"] == "true" {
				argv = append(argv, "--force")
			}
			return append(argv, a["image"])
		})
	case "removeNetwork":
		return requireArgs(args, []string{"network"}, func(a map[string]string) []string {
			return []string{"network", "rm", a["network"]}
		})
	case "createNetwork":
		return requireArgs(args, []string{"network"}, func(a map[string]string) []string {
			return []string{"network", "create", a["network"]}
		})
	case "createVolume":
		return requireArgs(args, []string{"volume"}, func(a map[string]string) []string {
			return []string{"volume", "create", a["volume"]}
		})
	case "connectNetwork":
		return requireArgs(args, []string{"network", "container"}, func(a map[string]string) []string {
			return []string{"network", "connect", a["network"], a["container"]}
		})
	case "disconnectNetwork":
		return requireArgs(args, []string{"network", "container"}, func(a map[string]string) []string {
			return []string{"network", "disconnect", a["network"], a["container"]}
		})
	case "pruneImages":
		return []string{"image", "prune", "--force"}, nil
	case "composeUp":
		return []string{"compose", "up", "--detach"}, nil
	case "composeDown":
		return []string{"compose", "down"}, nil
	}

	// Blocked operations (removeVolume, pruneVolumes, systemPrune) have no
	// mapping: even a dispatcher bug cannot launch them from here.
	return nil, fmt.Errorf("no docker invocation for command %q", command)
}

func requireArgs(args map[string]string, required []string, build func(map[string]string) []string) ([]string, error) {
	for _, k := range required {
		if args[k] == "" {
			return nil, fmt.Errorf("missing required argument %q", k)
		}
	}
	return build(args), nil
}

func timeoutOrDefault(args map[string]string) string {
	if t := args["timeout"]; t != "" {
		return t
	}
	return "10"
}

func imageRef(args map[string]string) string {
	ref := args["image"]
	if !strings.Contains(ref, ":") {
		tag := args["tag"]
		if tag == "" {
			tag = "latest"
		}
		ref += ":" + tag
	}
	return ref
}

// CommandKey extracts the policy key from a docker argv: the first
// subcommand, or two words for network, volume, and compose invocations.
// Compose option flags that take a value are skipped to reach the
// subcommand.
func CommandKey(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("docker command is required")
	}

	first := argv[0]
	if first == "compose" {
		for i := 1; i < len(argv); i++ {
			token := argv[i]
			switch token {
			case "-f", "--file", "-p", "--project-name", "--profile":
				i++
				continue
			}
			if strings.HasPrefix(token, "-") {
				continue
			}
			return "compose " + token, nil
		}
		return "", fmt.Errorf("docker compose subcommand is required")
	}

	if first == "network" || first == "volume" || first == "image" {
		if len(argv) < 2 {
			return "", fmt.Errorf("'docker %s' subcommand is required", first)
		}
		return first + " " + argv[1], nil
	}

	return first, nil
}

// scanArgv rejects any token containing a shell control marker.
func scanArgv(argv []string) error {
	for _, token := range argv {
		for _, marker := range shellMarkers {
			if strings.Contains(token, marker) {
				return fmt.Errorf("shell control operator %q in token %q", marker, token)
			}
		}
	}
	return nil
}
