package tetris

// RotatePiece はピースを回転させ、必要であれば壁蹴りを試します。
//
// まずその場で回転できるかを確認し、できなければ壁蹴り表の候補を順に試して
// 最初に有効だったオフセットでピースを移動させます。どの候補も無効な場合は
// 回転インデックスを元に戻し、ピースは一切変化しません。
//
// Parameters:
//
//	p         : 回転させるピース
//	clockwise : true なら時計回り、false なら反時計回り
//
// Returns:
//
//	bool: 回転が確定した場合はtrue
func (b *Board) RotatePiece(p *Piece, clockwise bool) bool {
	from := p.Rotation
	to := (from + 1) % NumRotations
	if !clockwise {
		to = (from + NumRotations - 1) % NumRotations
	}
	kicks := WallKicks(p.Type, from, to)

	p.Rotation = to
	if b.IsValid(p, 0, 0) {
		return true
	}
	for _, k := range kicks {
		if b.IsValid(p, k.X, k.Y) {
			p.X += k.X
			p.Y += k.Y
			return true
		}
	}
	p.Rotation = from
	return false
}
