// Package game binds the scene to the App state machine.
package game

import (
	"fmt"

	"github.com/naturalgravity/nge"
	"github.com/naturalgravity/nge/construct"
)

// GameState is the single state the application runs in.
type GameState struct {
	Def construct.SceneDef
	// Assets defaults to the App's AssetServer resource.
	Assets *nge.AssetServer

	scene *construct.Scene
}

func NewGameState(def construct.SceneDef) *GameState {
	return &GameState{Def: def}
}

func (g *GameState) OnStart(cmd *nge.Commands) error {
	assets := g.Assets
	if assets == nil {
		var ok bool
		if assets, ok = nge.Resource[nge.AssetServer](cmd); !ok {
			return fmt.Errorf("%w: no asset server installed", nge.ErrAsset)
		}
	}
	g.Assets = assets

	scene, err := construct.Build(cmd, assets, g.Def)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	g.scene = scene
	cmd.AddResources(scene)
	return nil
}

// OnStop undoes OnStart.
func (g *GameState) OnStop(cmd *nge.Commands) {
	if g.scene == nil {
		return
	}
	cmd.RemoveResource(g.scene)
	construct.Teardown(cmd, g.Assets, g.scene)
	g.scene = nil
}

func (g *GameState) OnPause(cmd *nge.Commands)  {}
func (g *GameState) OnResume(cmd *nge.Commands) {}

func (g *GameState) Update(cmd *nge.Commands) nge.Trans {
	return nge.TransNone()
}

func (g *GameState) HandleEvent(cmd *nge.Commands, event nge.Event) nge.Trans {
	if _, ok := event.(nge.WindowCloseRequested); ok {
		return nge.TransQuit()
	}
	return nge.TransNone()
}

// Scene is the live scene, nil outside OnStart..OnStop.
func (g *GameState) Scene() *construct.Scene {
	return g.scene
}
