// Package isce drives topsApp.py from the ISCE2 toolbox to produce
// geocoded interferometric products from a pair of Sentinel-1 SLC scenes.
package isce

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap/zapcore"

	"github.com/sarlab/insar-analyzer/service/log"
)

const configFileName = "topsApp.xml"

// Driver runs topsApp.py inside a conda environment.
type Driver struct {
	CondaEnv string // conda environment with isce2 installed
	CondaBin string // defaults to "conda"

	// PhaseFunc, when set, receives the processing phase as it changes.
	PhaseFunc func(phase string)
}

func cmdToString(cmd *exec.Cmd) string {
	s := ""
	for _, a := range cmd.Args {
		s += " " + a
	}
	return s
}

// Run writes the topsApp configuration into workdir and executes the full
// processing chain there. On ctx cancellation the subprocess is killed.
func (d *Driver) Run(ctx context.Context, workdir string, p Params) error {
	cfg, err := BuildConfig(p)
	if err != nil {
		return fmt.Errorf("Run.%w", err)
	}
	cfgPath := filepath.Join(workdir, configFileName)
	if err := os.WriteFile(cfgPath, cfg, 0644); err != nil {
		return fmt.Errorf("Run.WriteConfig: %w", err)
	}

	condaBin := d.CondaBin
	if condaBin == "" {
		condaBin = "conda"
	}
	cmd := exec.Command(condaBin, "run", "-n", d.CondaEnv, "--no-capture-output",
		"topsApp.py", configFileName, "--steps")
	cmd.Dir = workdir

	filter := &TopsAppLogFilter{}
	if d.PhaseFunc != nil {
		d.PhaseFunc("Starting")
	}
	log.Logger(ctx).Sugar().Debug(cmdToString(cmd))
	err = log.Exec(ctx, cmd,
		log.StdoutLevel(zapcore.DebugLevel),
		log.StdoutFilter(&phaseNotifier{filter, d.PhaseFunc}),
		log.StderrFilter(&phaseNotifier{filter, d.PhaseFunc}))
	if err != nil {
		return fmt.Errorf("Run[%s]: %w", cmdToString(cmd), filter.WrapError(err))
	}
	return nil
}

// phaseNotifier forwards phase changes to the driver callback.
type phaseNotifier struct {
	inner *TopsAppLogFilter
	fn    func(phase string)
}

func (n *phaseNotifier) Filter(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool) {
	before := n.inner.Phase()
	out, level, ignore := n.inner.Filter(msg, defaultLevel)
	if n.fn != nil && n.inner.Phase() != before {
		n.fn(n.inner.Phase())
	}
	return out, level, ignore
}

// geocoded products produced under merged/, in display order.
var mergedProducts = []string{
	"filt_topophase.unw.geo",
	"filt_topophase.flat.geo",
	"topophase.cor.geo",
	"phsig.cor.geo",
	"los.rdr.geo",
	"dem.crop",
}

// DiscoverProducts returns the geocoded rasters a finished run left under
// workdir/merged.
func DiscoverProducts(workdir string) []string {
	var found []string
	for _, name := range mergedProducts {
		p := filepath.Join(workdir, "merged", name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}
