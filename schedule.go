package nge

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"
)

type UpdateType int

const (
	FixedUpdate UpdateType = iota
	DynamicUpdate
)

type Stage struct {
	Name       string
	UpdateType UpdateType
}

var (
	Prelude    = Stage{Name: "Prelude", UpdateType: DynamicUpdate}
	PreUpdate  = Stage{Name: "PreUpdate", UpdateType: DynamicUpdate}
	Update     = Stage{Name: "Update", UpdateType: DynamicUpdate}
	PostUpdate = Stage{Name: "PostUpdate", UpdateType: DynamicUpdate}
	PreRender  = Stage{Name: "PreRender", UpdateType: DynamicUpdate}
	Render     = Stage{Name: "Render", UpdateType: DynamicUpdate}
	PostRender = Stage{Name: "PostRender", UpdateType: DynamicUpdate}
	Finale     = Stage{Name: "Finale", UpdateType: DynamicUpdate}
)

func defaultStages() []Stage {
	return []Stage{Prelude, PreUpdate, Update, PostUpdate, PreRender, Render, PostRender, Finale}
}

type systemFn any

type systemScheduleBuilder struct {
	system  systemFn
	name    string
	inStage Stage
	after   []string
}

// System wraps a system function for scheduling. Parameters of the function
// are resolved by type when it runs: *Commands or any resource pointer.
func System(system systemFn) systemScheduleBuilder {
	if reflect.TypeOf(system) == nil || reflect.TypeOf(system).Kind() != reflect.Func {
		panic(fmt.Sprintf("System expects a function, got %T", system))
	}
	return systemScheduleBuilder{
		system:  system,
		inStage: Update,
	}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	sched.inStage = s
	return sched
}

// Named gives the system a name other systems can depend on.
func (sched systemScheduleBuilder) Named(name string) systemScheduleBuilder {
	sched.name = name
	return sched
}

// After declares explicit ordering edges: the system runs after every named
// system, either later in the same stage or in a later stage.
func (sched systemScheduleBuilder) After(names ...string) systemScheduleBuilder {
	sched.after = append(slices.Clone(sched.after), names...)
	return sched
}

type scheduledSystem struct {
	system systemFn
	name   string
	stage  string
	after  []string
	seq    int
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageBefore,
		target:   s,
	}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageAfter,
		target:   s,
	}
}

func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	stageIdx := app.stageIndex(where.target.Name)
	if -1 == stageIdx {
		panic(fmt.Sprintf("Stage %v not found", where.target.Name))
	}
	if app.stageIndex(stage.Name) != -1 {
		panic(fmt.Sprintf("Stage %v already exists", stage.Name))
	}

	var insertAt int
	if stageBefore == where.position {
		insertAt = stageIdx
	} else {
		insertAt = stageIdx + 1
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.scheduleDirty = true

	return app
}

func (app *App) UseSystem(system systemScheduleBuilder) *App {
	if app.stageIndex(system.inStage.Name) == -1 {
		panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
	}

	name := system.name
	if name == "" {
		// Closures from one function share a name, so later ones get a suffix.
		name = systemFuncName(system.system)
		if app.registeredName(name) {
			name = fmt.Sprintf("%s#%d", name, len(app.registered))
		}
	} else if app.registeredName(name) {
		panic(fmt.Sprintf("System %q registered twice", name))
	}

	app.registered = append(app.registered, &scheduledSystem{
		system: system.system,
		name:   name,
		stage:  system.inStage.Name,
		after:  system.after,
		seq:    len(app.registered),
	})
	app.scheduleDirty = true
	return app
}

func (app *App) registeredName(name string) bool {
	for _, s := range app.registered {
		if s.name == name {
			return true
		}
	}
	return false
}

func (app *App) stageIndex(name string) int {
	for i, s := range app.stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// resolveSchedule orders systems per stage. Edges inside a stage are
// topologically sorted, ties broken by registration order. Edges to an
// earlier stage are satisfied by stage order.
func (app *App) resolveSchedule() {
	byName := make(map[string]*scheduledSystem, len(app.registered))
	for _, s := range app.registered {
		byName[s.name] = s
	}

	for _, s := range app.registered {
		for _, dep := range s.after {
			target, ok := byName[dep]
			if !ok {
				panic(fmt.Sprintf("System %q depends on unknown system %q", s.name, dep))
			}
			if app.stageIndex(target.stage) > app.stageIndex(s.stage) {
				panic(fmt.Sprintf("System %q in stage %s cannot run after %q in later stage %s",
					s.name, s.stage, dep, target.stage))
			}
		}
	}

	ordered := make(map[string][]*scheduledSystem, len(app.stages))
	for _, stage := range app.stages {
		var inStage []*scheduledSystem
		for _, s := range app.registered {
			if s.stage == stage.Name {
				inStage = append(inStage, s)
			}
		}
		ordered[stage.Name] = topoSortSystems(stage.Name, inStage)
	}

	app.schedule = ordered
	app.scheduleDirty = false
}

func topoSortSystems(stage string, systems []*scheduledSystem) []*scheduledSystem {
	local := make(map[string]bool, len(systems))
	for _, s := range systems {
		local[s.name] = true
	}

	pending := make(map[*scheduledSystem]int, len(systems))
	dependents := make(map[string][]*scheduledSystem)
	for _, s := range systems {
		for _, dep := range s.after {
			if local[dep] {
				pending[s]++
				dependents[dep] = append(dependents[dep], s)
			}
		}
	}

	var ready []*scheduledSystem
	for _, s := range systems {
		if pending[s] == 0 {
			ready = append(ready, s)
		}
	}

	res := make([]*scheduledSystem, 0, len(systems))
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b *scheduledSystem) int { return a.seq - b.seq })
		next := ready[0]
		ready = ready[1:]
		res = append(res, next)

		for _, d := range dependents[next.name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(res) != len(systems) {
		var stuck []string
		for _, s := range systems {
			if pending[s] > 0 {
				stuck = append(stuck, s.name)
			}
		}
		panic(fmt.Sprintf("Dependency cycle in stage %s between systems: %s", stage, strings.Join(stuck, ", ")))
	}
	return res
}

// SystemOrder reports the resolved execution order across all stages.
func (app *App) SystemOrder() []string {
	if app.scheduleDirty || app.schedule == nil {
		app.resolveSchedule()
	}
	var names []string
	for _, stage := range app.stages {
		for _, s := range app.schedule[stage.Name] {
			names = append(names, s.name)
		}
	}
	return names
}

func systemFuncName(system systemFn) string {
	name := runtime.FuncForPC(reflect.ValueOf(system).Pointer()).Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
