package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/srg/blip/internal/bledb"
	"github.com/srg/blip/internal/gatt"
	"golang.org/x/term"
)

// stdoutIsTerminal reports whether stdout is attached to a terminal.
// Tree output drops color codes when piped into a file or another tool.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// treePalette holds the color set used by the tree renderers. Colors are
// disabled wholesale when the output is not a terminal.
type treePalette struct {
	uuid  *color.Color
	name  *color.Color
	flags *color.Color
	path  *color.Color
}

func newTreePalette(colored bool) *treePalette {
	p := &treePalette{
		uuid:  color.New(color.FgCyan),
		name:  color.New(color.FgGreen),
		flags: color.New(color.FgYellow),
		path:  color.New(color.Faint),
	}
	if !colored {
		p.uuid.DisableColor()
		p.name.DisableColor()
		p.flags.DisableColor()
		p.path.DisableColor()
	}
	return p
}

// annotate returns " (Assigned Name)" for UUIDs the SIG database knows,
// empty string otherwise.
func (p *treePalette) annotate(name string) string {
	if name == "" {
		return ""
	}
	return " (" + p.name.Sprint(name) + ")"
}

func (p *treePalette) valueSuffix(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	return " value=" + hex.EncodeToString(value)
}

// printProfileTree renders an unregistered profile layout: the attribute
// hierarchy as it will be exported, without object paths.
func printProfileTree(w io.Writer, services []gatt.ServiceConfig, colored bool) {
	p := newTreePalette(colored)

	for _, svc := range services {
		kind := "primary"
		if !svc.Primary {
			kind = "secondary"
		}
		fmt.Fprintf(w, "%s %s service%s\n",
			p.uuid.Sprint(svc.UUID), kind, p.annotate(bledb.LookupService(svc.UUID)))

		for _, chr := range svc.Characteristics {
			fmt.Fprintf(w, "  %s [%s]%s%s\n",
				p.uuid.Sprint(chr.UUID),
				p.flags.Sprint(chr.Flags.String()),
				p.annotate(bledb.LookupCharacteristic(chr.UUID)),
				p.valueSuffix(chr.Value))

			for _, desc := range chr.Descriptors {
				fmt.Fprintf(w, "    %s [%s]%s%s\n",
					p.uuid.Sprint(desc.UUID),
					p.flags.Sprint(desc.Flags.String()),
					p.annotate(bledb.LookupDescriptor(desc.UUID)),
					p.valueSuffix(desc.Value))
			}
		}
	}
}

// printServiceTree renders registered services with their exported object
// paths, in the same layout as printProfileTree.
func printServiceTree(w io.Writer, services []*gatt.Service, colored bool) {
	p := newTreePalette(colored)

	for _, svc := range services {
		kind := "primary"
		if !svc.Primary() {
			kind = "secondary"
		}
		fmt.Fprintf(w, "%s %s service%s %s\n",
			p.uuid.Sprint(svc.UUID()), kind,
			p.annotate(bledb.LookupService(svc.UUID())),
			p.path.Sprint(svc.Path()))

		for _, chr := range svc.Characteristics() {
			fmt.Fprintf(w, "  %s [%s]%s%s %s\n",
				p.uuid.Sprint(chr.UUID()),
				p.flags.Sprint(chr.Flags().String()),
				p.annotate(bledb.LookupCharacteristic(chr.UUID())),
				p.valueSuffix(chr.Value().Load()),
				p.path.Sprint(chr.Path()))

			for _, desc := range chr.Descriptors() {
				fmt.Fprintf(w, "    %s [%s]%s%s %s\n",
					p.uuid.Sprint(desc.UUID()),
					p.flags.Sprint(desc.Flags().String()),
					p.annotate(bledb.LookupDescriptor(desc.UUID())),
					p.valueSuffix(desc.Value().Load()),
					p.path.Sprint(desc.Path()))
			}
		}
	}
}
