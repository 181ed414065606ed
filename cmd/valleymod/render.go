// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/reconcile"
	"github.com/valleymod/valleymod/internal/resolve"
	"github.com/valleymod/valleymod/internal/rules"
)

func printField(w io.Writer, label, value string) {
	if value == "" {
		value = SubtitleStyle.Render("-")
	}
	fmt.Fprintln(w, labelStyle.Render(label)+value)
}

// printRules lists rules one per line: state, kind, target, version and
// where the target can be found.
func printRules(w io.Writer, list []rules.Rule, installed host.InstalledMods) {
	if len(list) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  no dependencies"))
		return
	}
	for _, r := range list {
		state := string(r.State)
		style := stateStyles[state]
		line := fmt.Sprintf("  %s %-10s %s %s",
			style.Render(fmt.Sprintf("%-10s", state)),
			r.Kind,
			IDStyle.Render(r.Target()),
			SubtitleStyle.Render(r.Reference.VersionMatch))
		switch r.State {
		case rules.StateLocal:
			name := r.Reference.ID
			if m, ok := installed.Get(r.Reference.ID); ok && m.Name != "" {
				name = m.Name
			}
			line += "  -> " + name
		case rules.StateRemote:
			if url := r.DownloadURL(); url != "" {
				line += "  " + url
			}
		}
		fmt.Fprintln(w, line)
	}
}

// printReconcile reports a reconciliation in one line.
func printReconcile(w io.Writer, name string, res reconcile.Result) {
	s := resolve.Summarize(res.Rules)
	parts := []string{
		fmt.Sprintf("%d installed", s.Local),
		fmt.Sprintf("%d downloadable", s.Remote),
		fmt.Sprintf("%d not found", s.Unresolved),
	}
	status := SuccessStyle.Render("dependencies ok")
	if s.MissingRequired > 0 {
		status = WarningStyle.Render(fmt.Sprintf("%d required missing", s.MissingRequired))
	}
	changed := ""
	if !res.Changed {
		changed = SubtitleStyle.Render(" (unchanged)")
	}
	fmt.Fprintf(w, "%s: %s, %s%s\n", IDStyle.Render(name), status, strings.Join(parts, ", "), changed)
}

func modLabel(m host.InstalledMod) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
