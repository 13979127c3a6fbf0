package freezer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// Executable is a located frozen build artifact.
type Executable struct {
	// Path is the absolute path to the executable file.
	Path string

	// Dir is the directory the executable lives in. The run step uses it
	// as the working directory and the container re-run bind-mounts it.
	Dir string
}

// LocateExecutable searches the sample's build output for the artifact
// the given action produced. Each action has its own layout:
//
//   - build_exe writes the bare app name (".exe" appended on
//     Windows-like platforms) into build/exe.<platform>-<pyver>/, with
//     dist/ and a flat build/ as fallbacks.
//   - bdist_appimage writes dist/<app>-<version>-<arch>.AppImage; the
//     version and architecture are chosen by the packaging tool, so the
//     file is found by glob.
//   - bdist_msi writes a decorated dist/*.msi, also found by glob.
//   - bdist_mac writes a build/<app>.app bundle with the real binary at
//     Contents/MacOS/<app> inside it.
//
// Returns a model.CLIError with ExitBuildFailed when nothing matches:
// the run step is never attempted for a build that produced nothing.
func LocateExecutable(sampleDir, appName string, action model.FreezeAction, env *pyenv.Env) (*Executable, error) {
	switch action {
	case model.ActionBdistAppImage:
		return locateByGlob(sampleDir, appName, "AppImage", []string{
			filepath.Join(sampleDir, "dist", appName+"*.AppImage"),
			filepath.Join(sampleDir, "dist", "*.AppImage"),
		})
	case model.ActionBdistMSI:
		return locateByGlob(sampleDir, appName, "MSI", []string{
			filepath.Join(sampleDir, "dist", appName+"*.msi"),
			filepath.Join(sampleDir, "dist", "*.msi"),
		})
	case model.ActionBdistMac:
		return locateAppBundle(sampleDir, appName)
	default:
		return locateBuildExe(sampleDir, appName, env)
	}
}

// locateBuildExe implements the build_exe search: the bare app name in
// each candidate output directory, most specific first.
func locateBuildExe(sampleDir, appName string, env *pyenv.Env) (*Executable, error) {
	exeName := appName
	if env.Platform.IsWindowsLike() {
		exeName += ".exe"
	}

	for _, dir := range candidateDirs(sampleDir, env) {
		path := filepath.Join(dir, exeName)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &Executable{Path: path, Dir: dir}, nil
	}

	return nil, model.NewCLIError(
		model.ExitBuildFailed,
		fmt.Sprintf("no executable %q found under %s (tried build/exe.*, dist, build)", exeName, sampleDir),
	)
}

// locateByGlob finds a decorated bdist artifact. Patterns are tried in
// order; within one pattern the matches are reverse-sorted so the
// highest version wins when artifacts from earlier builds linger.
func locateByGlob(sampleDir, appName, kind string, patterns []string) (*Executable, error) {
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			return &Executable{Path: path, Dir: filepath.Dir(path)}, nil
		}
	}

	return nil, model.NewCLIError(
		model.ExitBuildFailed,
		fmt.Sprintf("no %s artifact for %q found under %s", kind, appName, filepath.Join(sampleDir, "dist")),
	)
}

// locateAppBundle finds the binary inside a bdist_mac .app bundle. The
// bundle named after the app is tried first, then every bundle under
// build/, because bundles may carry a display name instead.
func locateAppBundle(sampleDir, appName string) (*Executable, error) {
	bundles := []string{filepath.Join(sampleDir, "build", appName+".app")}
	matches, _ := filepath.Glob(filepath.Join(sampleDir, "build", "*.app"))
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	bundles = append(bundles, matches...)

	for _, bundle := range dedupe(bundles) {
		name := strings.TrimSuffix(filepath.Base(bundle), ".app")
		path := filepath.Join(bundle, "Contents", "MacOS", name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &Executable{Path: path, Dir: filepath.Dir(path)}, nil
	}

	return nil, model.NewCLIError(
		model.ExitBuildFailed,
		fmt.Sprintf("no .app bundle for %q found under %s", appName, filepath.Join(sampleDir, "build")),
	)
}

// candidateDirs enumerates the build_exe output directories to search,
// most specific first. Glob results are sorted in reverse so that, when
// several exe.* directories exist from earlier interpreter versions, the
// lexicographically newest is preferred.
func candidateDirs(sampleDir string, env *pyenv.Env) []string {
	var dirs []string

	// Exact build_exe directory for the current platform and interpreter.
	if tag := BuildDirTag(env); tag != "" {
		dirs = append(dirs, filepath.Join(sampleDir, "build", "exe."+tag))
	}

	// Glob fallback: any build_exe directory, preferring ones that match
	// the interpreter's major.minor suffix.
	patterns := []string{"exe.*"}
	if short := env.ShortVersion(); short != "" {
		patterns = []string{"exe.*-" + short, "exe.*"}
	}
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(filepath.Join(sampleDir, "build", pattern))
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
		dirs = append(dirs, matches...)
	}

	dirs = append(dirs,
		filepath.Join(sampleDir, "dist"),
		filepath.Join(sampleDir, "build"),
	)

	return dedupe(dirs)
}

// BuildDirTag derives the "<platform>-<pyver>" suffix of the build_exe
// output directory, e.g. "linux-x86_64-3.12" or "win-amd64-3.12".
//
// macOS is deliberately left to the glob fallback: its platform tag embeds
// the deployment target ("macosx-11.0-arm64"), which cannot be derived
// without asking the interpreter. Returns "" when the tag is unknown.
func BuildDirTag(env *pyenv.Env) string {
	short := env.ShortVersion()
	if short == "" {
		return ""
	}

	var platform string
	switch env.Platform {
	case model.PlatformLinux:
		platform = "linux-" + unameArch()
	case model.PlatformWindows:
		if runtime.GOARCH == "amd64" {
			platform = "win-amd64"
		} else {
			platform = "win32"
		}
	case model.PlatformMinGW:
		platform = "mingw_" + unameArch()
	default:
		return ""
	}

	return platform + "-" + short
}

// unameArch maps Go's architecture names to the uname-style names Python's
// platform tags use.
func unameArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return runtime.GOARCH
	}
}

// dedupe removes duplicate paths while preserving order.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
