package rules

import "errors"

// Kind identifies why an operation was rejected. The set is closed: callers
// switch on it to pick a message or a transport status.
type Kind string

const (
	KindEmptySource          Kind = "empty_source"
	KindPieceNotOwned        Kind = "piece_not_owned"
	KindInvalidPath          Kind = "invalid_path"
	KindGameOver             Kind = "game_over"
	KindInvalidTurn          Kind = "invalid_turn"
	KindIllegalMove          Kind = "illegal_move"
	KindMustBreakRepetition  Kind = "attacker_must_break_repetition"
	KindBotNotOnTurn         Kind = "bot_not_on_turn"
	KindBotNoLegalMoves      Kind = "bot_no_legal_moves"
	KindVersionConflict      Kind = "version_conflict"
	KindConcurrentUpdate     Kind = "concurrent_update_detected"
	KindFirstSaveNotVersion0 Kind = "first_save_must_be_version_0"
	KindGameNotFound         Kind = "game_not_found"
	KindInvalidPayload       Kind = "invalid_payload"
)

// Error is a rejected operation. Two errors match under errors.Is when their
// kinds are equal; Detail is informational.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrEmptySource          = &Error{Kind: KindEmptySource}
	ErrPieceNotOwned        = &Error{Kind: KindPieceNotOwned}
	ErrInvalidPath          = &Error{Kind: KindInvalidPath}
	ErrGameOver             = &Error{Kind: KindGameOver}
	ErrInvalidTurn          = &Error{Kind: KindInvalidTurn}
	ErrIllegalMove          = &Error{Kind: KindIllegalMove}
	ErrMustBreakRepetition  = &Error{Kind: KindMustBreakRepetition}
	ErrBotNotOnTurn         = &Error{Kind: KindBotNotOnTurn}
	ErrBotNoLegalMoves      = &Error{Kind: KindBotNoLegalMoves}
	ErrVersionConflict      = &Error{Kind: KindVersionConflict}
	ErrConcurrentUpdate     = &Error{Kind: KindConcurrentUpdate}
	ErrFirstSaveNotVersion0 = &Error{Kind: KindFirstSaveNotVersion0}
	ErrGameNotFound         = &Error{Kind: KindGameNotFound}
	ErrInvalidPayload       = &Error{Kind: KindInvalidPayload}
)

// Errorf returns an error of the given kind with a detail message.
func Errorf(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf extracts the kind from err, or "" if err is not a rules error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
