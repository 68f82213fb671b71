// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package appliance

import (
	"fmt"
	"strings"
)

// VersionInfo mirrors the appliance's /api/info/version payload.
type VersionInfo struct {
	Version struct {
		Core ComponentVersion `json:"core"`
		Web  ComponentVersion `json:"web"`
		FTL  ComponentVersion `json:"ftl"`
	} `json:"version"`
}

// ComponentVersion describes one appliance component (core, web UI, FTL).
type ComponentVersion struct {
	Local  VersionDetail `json:"local"`
	Remote VersionDetail `json:"remote"`
}

// VersionDetail is the installed or upstream version of a component.
type VersionDetail struct {
	Version string `json:"version"`
	Branch  string `json:"branch"`
	Hash    string `json:"hash"`
}

// Summary renders a one-line version string for logs and connectivity tests,
// e.g. "core v6.0.5, web v6.1, ftl v6.0.4".
func (v *VersionInfo) Summary() string {
	parts := make([]string, 0, 3)
	if ver := v.Version.Core.Local.Version; ver != "" {
		parts = append(parts, fmt.Sprintf("core %s", ver))
	}
	if ver := v.Version.Web.Local.Version; ver != "" {
		parts = append(parts, fmt.Sprintf("web %s", ver))
	}
	if ver := v.Version.FTL.Local.Version; ver != "" {
		parts = append(parts, fmt.Sprintf("ftl %s", ver))
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}
