package config

import (
	"reflect"
	"sort"
	"strings"

	"github.com/chimekit/chime/pkg/logx"
)

// SummarizeChange returns (1) a compact list of changed sections, (2) safe
// structured attrs for logging, and (3) the names of tasks whose declaration
// changed (added, removed or edited).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Timezone
	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, "timezone")
		attrs = append(attrs, logx.String("timezone", strings.TrimSpace(newCfg.Timezone)))
	}

	// History. Nil means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	var oKeep, nKeep int
	if h := oldCfg.History; h != nil {
		oDriver = strings.TrimSpace(h.Driver)
		oBusy = strings.TrimSpace(h.BusyTimeout)
		oPathSet = strings.TrimSpace(h.Path) != ""
		oKeep = h.Keep
	}
	if h := newCfg.History; h != nil {
		nDriver = strings.TrimSpace(h.Driver)
		nBusy = strings.TrimSpace(h.BusyTimeout)
		nPathSet = strings.TrimSpace(h.Path) != ""
		nKeep = h.Keep
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet || oKeep != nKeep {
		changed = append(changed, "history")
		attrs = append(attrs,
			logx.String("history.driver", nDriver),
			logx.Bool("history.path_set", nPathSet),
			logx.Int("history.keep", nKeep),
		)
	}

	// Tasks (summarize only; details at debug)
	taskChanged := diffTasks(oldCfg.Tasks, newCfg.Tasks)
	if len(taskChanged) > 0 {
		changed = append(changed, "tasks")
		attrs = append(attrs,
			logx.Int("tasks.changed_count", len(taskChanged)),
			logx.Int("tasks.count", len(newCfg.Tasks)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, taskChanged
}

func diffTasks(oldT, newT []TaskConfig) []string {
	oldM := make(map[string]TaskConfig, len(oldT))
	for _, t := range oldT {
		oldM[t.Name] = t
	}
	newM := make(map[string]TaskConfig, len(newT))
	for _, t := range newT {
		newM[t.Name] = t
	}

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, oOK := oldM[name]
		n, nOK := newM[name]
		if oOK != nOK || !reflect.DeepEqual(o, n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
