// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/aibor/virtsup/internal/registry"
)

// Output formats.
const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

// outputFormat is a [pflag.Value] accepting the supported output formats.
type outputFormat string

func (o *outputFormat) String() string {
	return string(*o)
}

func (o *outputFormat) Set(s string) error {
	switch s {
	case outputTable, outputYAML, outputJSON:
		*o = outputFormat(s)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutput, s)
	}
}

func (*outputFormat) Type() string {
	return "format"
}

func addOutputFlag(flags *pflag.FlagSet, format *outputFormat) {
	*format = outputTable
	flags.VarP(format, "output", "o", "output format: table, yaml or json")
}

func writeInfos(w io.Writer, format outputFormat, infos []registry.Info) error {
	switch format {
	case outputJSON:
		return writeJSON(w, infos)
	case outputYAML:
		return writeYAML(w, infos)
	default:
		return writeTable(w, infos)
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(value)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(value)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close() //nolint:wrapcheck
}

func writeTable(w io.Writer, infos []registry.Info) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "PID", "State", "Disk", "ISO", "Started", "Exit")

	for _, info := range infos {
		exitCode := "-"
		if info.ExitCode != nil {
			exitCode = strconv.Itoa(*info.ExitCode)
		}

		err := table.Append(
			strconv.FormatUint(info.ID, 10),
			strconv.Itoa(info.PID),
			info.State.String(),
			info.DiskPath,
			info.ISOPath,
			info.StartedAt.Format(time.RFC3339),
			exitCode,
		)
		if err != nil {
			return fmt.Errorf("table: %w", err)
		}
	}

	return table.Render() //nolint:wrapcheck
}
