package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"livecap/internal/config"
)

// Report aggregates one observation of the audio environment.
type Report struct {
	Platform           string
	Mode               CaptureMode
	InputDevices       []Device
	LoopbackCandidates []Device
	ConfiguredDevice   *Device
	Issues             []string
	Recommendations    []string
}

// Diagnostic messages. Kept as constants so tests and the renderer agree.
const (
	msgNoInputDevices = "no input devices detected; check the system sound settings"
	msgNoCandidates   = "no loopback capture candidates detected; prepare a virtual device or monitor source"
	recPinDevice      = "set audio.device_index to stay unaffected by device-order changes"
	recCheckConfig    = "confirm the configured audio.device_index points at a loopback path"
)

// Collect enumerates devices fresh and derives issues and
// recommendations for the current configuration.
func Collect(ctx context.Context, catalog Catalog, cfg config.AudioConfig, goos string) (Report, error) {
	devices, err := catalog.Enumerate(ctx)
	if err != nil {
		return Report{}, err
	}

	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Report{}, envErr(ErrDeviceUnavailable, "%v", err)
	}
	effective := ResolveMode(mode, goos)

	var inputs []Device
	for _, d := range devices {
		if d.Inputs > 0 {
			inputs = append(inputs, d)
		}
	}

	candidates := Candidates(inputs, goos, cfg.LoopbackSink)

	var configured *Device
	if cfg.DeviceIndex != nil && *cfg.DeviceIndex >= 0 && *cfg.DeviceIndex < len(devices) {
		d := devices[*cfg.DeviceIndex]
		configured = &d
	}

	report := Report{
		Platform:           goos,
		Mode:               effective,
		InputDevices:       inputs,
		LoopbackCandidates: candidates,
		ConfiguredDevice:   configured,
	}

	if len(inputs) == 0 {
		report.Issues = append(report.Issues, msgNoInputDevices)
	}
	if cfg.DeviceIndex == nil && len(inputs) > 0 {
		report.Recommendations = append(report.Recommendations, recPinDevice)
	}
	if effective == ModeLoopback && len(candidates) == 0 {
		if cfg.DeviceIndex == nil {
			report.Issues = append(report.Issues, msgNoCandidates)
		} else {
			report.Recommendations = append(report.Recommendations, recCheckConfig)
		}
	}
	if effective == ModeLoopback && len(candidates) > 0 {
		names := make([]string, 0, 3)
		for _, c := range candidates {
			names = append(names, c.Name)
			if len(names) == 3 {
				break
			}
		}
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("loopback candidates: %s", strings.Join(names, ", ")))
	}

	return report, nil
}

// Render produces the fixed-order human-readable report.
func Render(r Report) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("  Audio Environment Diagnostics\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Platform: %s\n", r.Platform)
	fmt.Fprintf(&b, "Capture mode: %s\n", r.Mode)
	b.WriteString("\n[Input devices]\n")

	if len(r.InputDevices) == 0 {
		b.WriteString("  (none)\n")
	} else {
		b.WriteString(renderDeviceTable(r.InputDevices) + "\n")
	}

	if r.ConfiguredDevice != nil {
		fmt.Fprintf(&b, "\nConfigured device: #%d %s\n", r.ConfiguredDevice.Index, r.ConfiguredDevice.Name)
	}

	b.WriteString("\n[Loopback candidates]\n")
	if len(r.LoopbackCandidates) == 0 {
		b.WriteString("  (none)\n")
	} else {
		for _, c := range r.LoopbackCandidates {
			fmt.Fprintf(&b, "  #%3d: %s\n", c.Index, c.Name)
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n[Issues]\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n[Recommendations]\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	b.WriteString("\nSee docs/audio_loopback.md for manual routing steps.\n")
	return b.String()
}

func renderDeviceTable(devices []Device) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Name", "In", "Out", "Host API", "Rate"})

	for _, d := range devices {
		rate := "-"
		if d.DefaultSampleRate > 0 {
			rate = fmt.Sprintf("%.0f", d.DefaultSampleRate)
		}
		tw.AppendRow(table.Row{d.Index, d.Name, d.Inputs, d.Outputs, d.HostAPI, rate})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
