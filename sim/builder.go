package sim

import "github.com/sirupsen/logrus"

// Builder can be used to build a simulation.
type Builder struct {
	registry     *Registry
	modules      []string
	startTime    VTime
	endTime      VTime
	timeUnit     string
	globalParams map[string]any
	moduleParams map[string]map[string]any
	logEvents    bool
	logger       logrus.FieldLogger
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		endTime: 1,
	}
}

// WithRegistry sets the registry that holds the participating modules.
func (b Builder) WithRegistry(r *Registry) Builder {
	b.registry = r
	return b
}

// WithModules selects the modules taking part in the run, in tie-breaking
// order.
func (b Builder) WithModules(names ...string) Builder {
	b.modules = append(b.modules, names...)
	return b
}

// WithStartTime sets the simulation start time.
func (b Builder) WithStartTime(t VTime) Builder {
	b.startTime = t
	return b
}

// WithEndTime sets the simulation end time.
func (b Builder) WithEndTime(t VTime) Builder {
	b.endTime = t
	return b
}

// WithTimeUnit sets the diagnostic time unit.
func (b Builder) WithTimeUnit(unit string) Builder {
	b.timeUnit = unit
	return b
}

// WithGlobalParam adds a run-level parameter override applied to every
// module.
func (b Builder) WithGlobalParam(name string, value any) Builder {
	if b.globalParams == nil {
		b.globalParams = make(map[string]any)
	}
	b.globalParams[name] = value
	return b
}

// WithModuleParam adds a run-level parameter override for one module.
func (b Builder) WithModuleParam(module, name string, value any) Builder {
	if b.moduleParams == nil {
		b.moduleParams = make(map[string]map[string]any)
	}
	if b.moduleParams[module] == nil {
		b.moduleParams[module] = make(map[string]any)
	}
	b.moduleParams[module][name] = value
	return b
}

// WithEventLogging attaches an EventLogger hook to the built scheduler.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithLogger sets the logger used for diagnostics and event logging.
func (b Builder) WithLogger(log logrus.FieldLogger) Builder {
	b.logger = log
	return b
}

// Build initializes the simulation.
func (b Builder) Build() (*Simulation, error) {
	reg := b.registry
	if reg == nil {
		reg = NewRegistry()
	}

	if b.logger != nil {
		reg.SetLogger(b.logger)
	}

	s, err := NewSimulation(reg, Config{
		Modules:      b.modules,
		StartTime:    b.startTime,
		EndTime:      b.endTime,
		TimeUnit:     b.timeUnit,
		GlobalParams: b.globalParams,
		ModuleParams: b.moduleParams,
	})
	if err != nil {
		return nil, err
	}

	if b.logger != nil {
		s.Scheduler().SetLogger(b.logger)
	}

	if b.logEvents {
		logger := b.logger
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		s.Scheduler().AcceptHook(NewEventLogger(logger))
	}

	return s, nil
}
