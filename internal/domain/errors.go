package domain

import "errors"

// Draft engine rejections. A rejected mutation leaves engine state untouched.
var (
	ErrDraftComplete  = errors.New("draft is already complete")
	ErrNoTeamOnClock  = errors.New("no team on the clock")
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerDrafted  = errors.New("player is already drafted")
	ErrPositionFilled = errors.New("team already filled that position")
	ErrInvalidOrder   = errors.New("order is not a permutation of team ids")
	ErrNothingToUndo  = errors.New("nothing to undo")
)

// Room errors
var (
	ErrRoomFull     = errors.New("room is full")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room is closed")
	ErrNotHost      = errors.New("only the host can perform this action")
)
