package toolkit

import (
	"context"
	"math/rand"
	"strconv"
)

// DiceTool rolls a six-sided die. The roll function is injectable so the
// dice game stays deterministic under test.
type DiceTool struct {
	// Roll returns a value in [1, 6]. Defaults to math/rand when nil.
	Roll func() int
}

func (DiceTool) Name() string {
	return "roll_die"
}

func (DiceTool) Description() string {
	return "Roll a six-sided die and return the result."
}

func (t DiceTool) Call(context.Context, string) (string, error) {
	roll := t.Roll
	if roll == nil {
		roll = func() int { return rand.Intn(6) + 1 }
	}
	return strconv.Itoa(roll()), nil
}

// PlayerNameTool returns the player's name from its dependencies, mirroring
// a dependency-injected agent tool.
type PlayerNameTool struct {
	PlayerName string
}

func (PlayerNameTool) Name() string {
	return "get_player_name"
}

func (PlayerNameTool) Description() string {
	return "Get the name of the player currently playing the dice game."
}

func (t PlayerNameTool) Call(context.Context, string) (string, error) {
	return t.PlayerName, nil
}
