package rules

import "github.com/hailam/tablutplay/internal/board"

// attackersAroundThrone counts attackers on the four throne neighbors.
func attackersAroundThrone(b *board.Board) int {
	n := 0
	for _, p := range board.Throne.Neighbors() {
		if b.At(p) == board.AttackerPiece {
			n++
		}
	}
	return n
}

// IsThroneHostile reports whether the throne acts as a capturing anchor: once
// the king has left it for good, or while the king sits on it with at least
// three attackers around.
func IsThroneHostile(b *board.Board, kingHasLeftThrone bool) bool {
	if kingHasLeftThrone {
		return true
	}
	if b.At(board.Throne) != board.King {
		return false
	}
	return attackersAroundThrone(b) >= 3
}

// kingInFortress reports whether the king is on or next to the throne, where
// only the fortress rule can take it.
func kingInFortress(p board.Pos) bool {
	return p.IsThrone() || p.IsThroneNeighbor()
}

// fortressCaptured applies the fortress rule to a king on or next to the
// throne. On the throne all four neighbors must hold attackers. Next to it,
// every neighbor except the throne itself must.
func fortressCaptured(b *board.Board, king board.Pos) bool {
	if king.IsThrone() {
		return attackersAroundThrone(b) == 4
	}
	if !king.IsThroneNeighbor() {
		return false
	}
	for _, n := range king.Neighbors() {
		if n.IsThrone() {
			continue
		}
		if b.At(n) != board.AttackerPiece {
			return false
		}
	}
	return true
}

// anchors reports whether beyond closes a sandwich for side: a friendly piece,
// or the throne while it is hostile. Off-board cells never anchor.
func anchors(b *board.Board, side board.Side, beyond board.Pos, throneHostile bool) bool {
	if !beyond.Inside() {
		return false
	}
	if beyond.IsThrone() {
		return throneHostile
	}
	piece := b.At(beyond)
	return piece != board.NoPiece && piece.Side() == side
}

// resolveCaptures scans the four directions around the landing cell and
// returns every piece the move captures. The board is not modified; all
// captures are judged against the board as it stands after the slide.
func resolveCaptures(b *board.Board, to board.Pos, side board.Side, kingHasLeftThrone bool) []Capture {
	throneHostile := IsThroneHostile(b, kingHasLeftThrone)
	captured := make([]Capture, 0, 4)
	kingCaptured := false

	for _, d := range board.Directions {
		adj := to.Add(d)
		if !adj.Inside() {
			continue
		}
		piece := b.At(adj)
		if piece == board.NoPiece || piece.Side() == side {
			continue
		}
		beyond := adj.Add(d)

		if piece == board.King {
			if side != board.Attacker || kingInFortress(adj) {
				continue
			}
			if anchors(b, side, beyond, throneHostile) {
				captured = append(captured, Capture{Pos: adj, Piece: board.King})
				kingCaptured = true
			}
			continue
		}

		if anchors(b, side, beyond, throneHostile) {
			captured = append(captured, Capture{Pos: adj, Piece: piece})
		}
	}

	// Fortress check runs on every attacker move, not only when the king is
	// adjacent to the landing cell.
	if !kingCaptured && side == board.Attacker {
		if king, ok := b.FindKing(); ok && kingInFortress(king) && fortressCaptured(b, king) {
			captured = append(captured, Capture{Pos: king, Piece: board.King})
		}
	}

	return captured
}

// DetectWinner returns the winning side for a board, or NoSide while the game
// continues: attackers win once the king is gone, defenders once it stands on
// any edge cell.
func DetectWinner(b *board.Board) board.Side {
	king, ok := b.FindKing()
	if !ok {
		return board.Attacker
	}
	if king.IsEdge() {
		return board.Defender
	}
	return board.NoSide
}

// KingDistanceToEdge returns the king's distance to the nearest edge, or 0
// if the king is gone.
func KingDistanceToEdge(b *board.Board) int {
	king, ok := b.FindKing()
	if !ok {
		return 0
	}
	return king.EdgeDistance()
}

// KingAdjacentAttackers counts attackers orthogonally adjacent to the king.
func KingAdjacentAttackers(b *board.Board) int {
	king, ok := b.FindKing()
	if !ok {
		return 0
	}
	n := 0
	for _, p := range king.Neighbors() {
		if b.At(p) == board.AttackerPiece {
			n++
		}
	}
	return n
}
