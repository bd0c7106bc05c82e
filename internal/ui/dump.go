package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/srg/gattpanel/internal/bledb"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/panel"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Formats lists the formats accepted by Dump.
var Formats = []string{FormatJSON, FormatYAML, FormatText}

// Dump writes the discovery result in the given format. json and yaml emit the
// raw payload; text prints the normalized service tree.
func Dump(w io.Writer, info *device.ServiceInfo, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode services as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return fmt.Errorf("failed to encode services as YAML: %w", err)
		}
		return enc.Close()
	case FormatText:
		return dumpText(w, info)
	default:
		return fmt.Errorf("unsupported output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
	}
}

// textWriter remembers the first write error and drops later writes.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	t.err = err
	return n, err
}

func dumpText(w io.Writer, info *device.ServiceInfo) error {
	if info == nil {
		_, err := fmt.Fprintln(w, "No services")
		return err
	}

	services, err := panel.Normalize(info, info.Shape)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		_, err := fmt.Fprintln(w, "No services")
		return err
	}

	svcColor := color.New(color.FgCyan, color.Bold)
	nameColor := color.New(color.FgHiBlack)
	propColor := color.New(color.FgGreen)

	tw := &textWriter{w: w}
	for _, svc := range services {
		svcColor.Fprint(tw, svc.UUID)
		if name := bledb.LookupService(svc.UUID); name != "" {
			nameColor.Fprintf(tw, " %s", name)
		}
		fmt.Fprintln(tw)

		for i, c := range svc.Characteristics {
			branch := "├─"
			if i == len(svc.Characteristics)-1 {
				branch = "└─"
			}
			fmt.Fprintf(tw, "  %s %s", branch, c.UUID)
			if name := bledb.LookupCharacteristic(c.UUID); name != "" {
				nameColor.Fprintf(tw, " %s", name)
			}
			if len(c.Properties) > 0 {
				propColor.Fprintf(tw, " [%s]", strings.Join(c.Properties, ", "))
			}
			fmt.Fprintln(tw)
		}
		if tw.err != nil {
			break
		}
	}
	return tw.err
}
