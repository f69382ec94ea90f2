package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modsim-lab/modsim/sim"
)

// demoRegistry registers the built-in demonstration modules: a landscape that
// holds a biomass pool, a growth process that compounds it, a fire process
// that consumes it shortly after each growth step, and a reporter that logs
// the pool. They are ordinary user modules riding on the engine; the CLI
// ships them so a scenario can run out of the box.
func demoRegistry(log logrus.FieldLogger) *sim.Registry {
	reg := sim.NewRegistry()
	reg.SetLogger(log)

	mustRegister(reg, sim.ModuleDescriptor{
		Name:    "landscape",
		Outputs: []sim.ObjectSpec{{Name: "biomass", Type: "float64"}},
		Params:  map[string]any{"initialBiomass": 100.0},
	}, sim.DispatchTable{
		sim.EventTypeInit: func(ctx sim.Context, e sim.Event) error {
			initial, err := floatParam(ctx, e.Module, "initialBiomass")
			if err != nil {
				return err
			}
			ctx.State().Set("biomass", initial)
			return nil
		},
	})

	// growth and fire modify the biomass pool in place. They declare it as an
	// input only: declaring it as an output as well would make them mutual
	// producers and close a dependency cycle. Within each step, their
	// relative order comes from the scheduling offsets, not from the graph.
	mustRegister(reg, sim.ModuleDescriptor{
		Name:   "growth",
		Inputs: []sim.ObjectSpec{{Name: "biomass", Type: "float64"}},
		Params: map[string]any{
			"rate":     0.1,
			"interval": 1.0,
		},
	}, sim.DispatchTable{
		sim.EventTypeInit: func(ctx sim.Context, e sim.Event) error {
			interval, err := floatParam(ctx, e.Module, "interval")
			if err != nil {
				return err
			}
			return ctx.Schedule(sim.MakeEvent(
				e.Time+sim.VTime(interval), e.Module, "grow"))
		},
		"grow": func(ctx sim.Context, e sim.Event) error {
			rate, err := floatParam(ctx, e.Module, "rate")
			if err != nil {
				return err
			}
			interval, err := floatParam(ctx, e.Module, "interval")
			if err != nil {
				return err
			}

			biomass, err := readBiomass(ctx)
			if err != nil {
				return err
			}
			ctx.State().Set("biomass", biomass*(1+rate))

			return ctx.Schedule(sim.MakeEvent(
				e.Time+sim.VTime(interval), e.Module, "grow"))
		},
	})

	mustRegister(reg, sim.ModuleDescriptor{
		Name:   "fire",
		Inputs: []sim.ObjectSpec{{Name: "biomass", Type: "float64"}},
		Params: map[string]any{
			"severity": 0.3,
			"interval": 1.0,
			// Burn shortly after each growth step so the fresh biomass value
			// is visible.
			"offset": 0.1,
		},
	}, sim.DispatchTable{
		sim.EventTypeInit: func(ctx sim.Context, e sim.Event) error {
			interval, err := floatParam(ctx, e.Module, "interval")
			if err != nil {
				return err
			}
			offset, err := floatParam(ctx, e.Module, "offset")
			if err != nil {
				return err
			}
			return ctx.Schedule(sim.MakeEvent(
				e.Time+sim.VTime(interval+offset), e.Module, "burn"))
		},
		"burn": func(ctx sim.Context, e sim.Event) error {
			severity, err := floatParam(ctx, e.Module, "severity")
			if err != nil {
				return err
			}
			interval, err := floatParam(ctx, e.Module, "interval")
			if err != nil {
				return err
			}

			biomass, err := readBiomass(ctx)
			if err != nil {
				return err
			}
			ctx.State().Set("biomass", biomass*(1-severity))

			return ctx.Schedule(sim.MakeEvent(
				e.Time+sim.VTime(interval), e.Module, "burn"))
		},
	})

	mustRegister(reg, sim.ModuleDescriptor{
		Name:     "reporter",
		Inputs:   []sim.ObjectSpec{{Name: "biomass", Type: "float64"}},
		RunAfter: []string{"landscape"},
		Params:   map[string]any{"interval": 1.0},
	}, sim.DispatchTable{
		sim.EventTypeInit: func(ctx sim.Context, e sim.Event) error {
			return ctx.Schedule(sim.MakeEvent(e.Time, e.Module, "report"))
		},
		"report": func(ctx sim.Context, e sim.Event) error {
			interval, err := floatParam(ctx, e.Module, "interval")
			if err != nil {
				return err
			}

			biomass, err := readBiomass(ctx)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"time":    float64(e.Time),
				"biomass": biomass,
			}).Info("biomass report")

			return ctx.Schedule(sim.MakeEvent(
				e.Time+sim.VTime(interval), e.Module, "report"))
		},
	})

	return reg
}

func mustRegister(reg *sim.Registry, desc sim.ModuleDescriptor, h sim.Handler) {
	if err := reg.Register(desc, h); err != nil {
		panic(err)
	}
}

func readBiomass(ctx sim.Context) (float64, error) {
	v, err := ctx.State().Get("biomass")
	if err != nil {
		return 0, err
	}

	b, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("biomass holds %T, want float64", v)
	}

	return b, nil
}

// floatParam reads a numeric parameter, accepting the int and float64 values
// that YAML scenarios produce.
func floatParam(ctx sim.Context, module, name string) (float64, error) {
	v, err := ctx.State().Param(module, name)
	if err != nil {
		return 0, err
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %q of module %s holds %T, want number",
			name, module, v)
	}
}
