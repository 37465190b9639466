package livevideo

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-intel/internal/errors"
)

// Player controls one embedded video player.
type Player interface {
	Play() error
	Pause() error
	Mute() error
	Unmute() error
	LoadByID(videoID string) error
	CueByID(videoID string) error
	Destroy() error
}

// ScriptSink receives browser scripts. A datastar SSE generator satisfies it.
type ScriptSink interface {
	ExecuteScript(script string, opts ...datastar.ExecuteScriptOption) error
}

// PlayerRegistry is the browser global holding embedded players by element id.
const PlayerRegistry = "window.intelPlayers"

// ScriptPlayer drives a browser-side player by sending scripts over a sink.
type ScriptPlayer struct {
	sink      ScriptSink
	elementID string

	mu        sync.Mutex
	destroyed bool
}

var _ Player = (*ScriptPlayer)(nil)

// NewScriptPlayer returns a player bound to the element with elementID.
func NewScriptPlayer(sink ScriptSink, elementID string) (*ScriptPlayer, error) {
	if sink == nil {
		return nil, errors.NewValidationError("sink", nil, "script sink is required")
	}
	if elementID == "" {
		return nil, errors.NewValidationError("elementID", elementID, "player element id is required")
	}
	return &ScriptPlayer{sink: sink, elementID: elementID}, nil
}

func (p *ScriptPlayer) Play() error   { return p.call("playVideo") }
func (p *ScriptPlayer) Pause() error  { return p.call("pauseVideo") }
func (p *ScriptPlayer) Mute() error   { return p.call("mute") }
func (p *ScriptPlayer) Unmute() error { return p.call("unMute") }

func (p *ScriptPlayer) LoadByID(videoID string) error {
	return p.callWithID("loadVideoById", videoID)
}

func (p *ScriptPlayer) CueByID(videoID string) error {
	return p.callWithID("cueVideoById", videoID)
}

// Destroy tears the browser player down. Later calls are no-ops.
func (p *ScriptPlayer) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	p.mu.Unlock()

	el := quote(p.elementID)
	script := fmt.Sprintf("%s?.[%s]?.destroy(); if (%s) delete %s[%s];",
		PlayerRegistry, el, PlayerRegistry, PlayerRegistry, el)
	return p.sink.ExecuteScript(script)
}

func (p *ScriptPlayer) callWithID(method, videoID string) error {
	if videoID == "" {
		return errors.NewValidationError("videoID", videoID, "video id is required")
	}
	return p.call(method, quote(videoID))
}

func (p *ScriptPlayer) call(method string, args ...string) error {
	p.mu.Lock()
	destroyed := p.destroyed
	p.mu.Unlock()
	if destroyed {
		return nil
	}
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	return p.sink.ExecuteScript(fmt.Sprintf("%s?.[%s]?.%s(%s);", PlayerRegistry, quote(p.elementID), method, arg))
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
