package buildinfo

import "runtime/debug"

// Set via -ldflags "-X routecost/internal/buildinfo.Version=..."
var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info reports the build. Unset fields fall back to the module and VCS
// settings embedded by the Go toolchain.
func Info() map[string]string {
    info := map[string]string{
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
    bi, ok := debug.ReadBuildInfo()
    if !ok { return info }
    if info["version"] == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
        info["version"] = bi.Main.Version
    }
    for _, s := range bi.Settings {
        switch s.Key {
        case "vcs.revision":
            if info["commit"] == "" { info["commit"] = s.Value }
        case "vcs.time":
            if info["builtAt"] == "" { info["builtAt"] = s.Value }
        }
    }
    info["go"] = bi.GoVersion
    return info
}
