package orchestrator

import (
	"github.com/dusk-indust/layercfg/internal/flagset"
)

// DefaultDifficulty is defined during multiplayer games; it is loaded early
// when a create-game reload cannot be avoided anyway.
const DefaultDifficulty = "NORMAL"

// Launch describes how the application was started.
type Launch struct {
	Multiplayer bool
	Test        bool
	Editor      bool
}

// CampaignType classifies a game.
type CampaignType int

const (
	CampaignScenario CampaignType = iota
	CampaignMultiplayer
	CampaignTest
	CampaignTutorial
)

// Classification carries the defines a game needs.
type Classification struct {
	Type           CampaignType
	Difficulty     string
	CampaignDefine string
	ScenarioDefine string
	EraDefine      string
	ExtraDefines   []string
	ModDefines     []string
	// Extensions are the extensions the game uses; flagset.All when the
	// game does not restrict them.
	Extensions flagset.Selection
}

// TitleScreenFlags is the flag set of the start-up resolution.
func (r *Resolver) TitleScreenFlags(l Launch) flagset.Set {
	return flagset.Set{}.
		With("MULTIPLAYER", "", l.Multiplayer).
		With("TEST", "", l.Test).
		With("MP_TEST", "", r.cfg.MPTest).
		With("EDITOR", "", l.Editor).
		With("TITLE_SCREEN", "", !l.Multiplayer && !l.Test && !l.Editor)
}

// EditorFlags is the flag set of the map editor.
func (r *Resolver) EditorFlags() flagset.Set {
	return flagset.Of("EDITOR")
}

// GameFlags is the flag set for playing a game of classification c.
func (r *Resolver) GameFlags(c Classification) flagset.Set {
	mp := c.Type == CampaignMultiplayer
	s := flagset.Set{}.
		With(c.Difficulty, "", c.Difficulty != "").
		With(c.CampaignDefine, "", c.CampaignDefine != "").
		With(c.ScenarioDefine, "", c.ScenarioDefine != "").
		With(c.EraDefine, "", c.EraDefine != "").
		With("MULTIPLAYER", "", mp).
		With("MP_TEST", "", r.cfg.MPTest && mp)
	for _, d := range c.ExtraDefines {
		s = s.With(d, "", d != "")
	}
	for _, d := range c.ModDefines {
		s = s.With(d, "", d != "")
	}
	return s
}

// CreateFlags is the flag set of the game creation screens. The default
// difficulty is added when the previous flags are not all kept, since a
// rebuild happens anyway.
func (r *Resolver) CreateFlags(isMP, isTest bool) flagset.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createFlagsLocked(isMP, isTest)
}

func (r *Resolver) createFlagsLocked(isMP, isTest bool) flagset.Set {
	s := flagset.Set{}.
		With("MULTIPLAYER", "", isMP).
		With("TEST", "", isTest).
		With("MP_TEST", "", r.cfg.MPTest && isMP)
	// DEBUG_MODE is added to every pass, so compare as the pass will.
	kept := flagset.Includes(s.With("DEBUG_MODE", "", r.cfg.Debug), r.prevFlags)
	return s.With(DefaultDifficulty, "", !kept)
}
