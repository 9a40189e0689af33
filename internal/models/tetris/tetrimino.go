package tetris

import "fmt"

// PieceType はテトリミノの種類を表します。
type PieceType int

const (
	TypeI PieceType = iota // 0: I-ミノ (シアン)
	TypeO                  // 1: O-ミノ (黄色)
	TypeT                  // 2: T-ミノ (紫)
	TypeS                  // 3: S-ミノ (緑)
	TypeZ                  // 4: Z-ミノ (赤)
	TypeJ                  // 5: J-ミノ (青)
	TypeL                  // 6: L-ミノ (オレンジ)
)

// NumPieceTypes はテトリミノの種類数です。
const NumPieceTypes = 7

// NumRotations は各テトリミノが持つ回転状態の数です。
const NumRotations = 4

// AllPieceTypes は7種類すべてのテトリミノを定義順に並べたものです。
var AllPieceTypes = [NumPieceTypes]PieceType{TypeI, TypeO, TypeT, TypeS, TypeZ, TypeJ, TypeL}

// SpawnX, SpawnY は新しいピースが出現する基準点です。
const (
	SpawnX = 3
	SpawnY = 0
)

// Point はボード上の座標、またはピース基準点からの相対座標です。
// X は列、Y は行（下に向かって増加）です。
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add は2つの座標を足し合わせます。
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Neg は符号を反転した座標を返します。
func (p Point) Neg() Point {
	return Point{X: -p.X, Y: -p.Y}
}

// Piece は操作中のテトリミノの状態（種類、ボード上の基準点座標、回転インデックス）を表します。
type Piece struct {
	Type       PieceType `json:"type"`                 // テトリミノの種類
	X          int       `json:"x"`                    // 基準点の列
	Y          int       `json:"y"`                    // 基準点の行
	Rotation   int       `json:"rotation"`             // 回転インデックス (0..3)
	Appearance string    `json:"appearance,omitempty"` // 見た目の装飾（ゲーム性には影響しない）
}

// NewPiece は出現位置に回転0で置かれた新しいピースを返します。
func NewPiece(t PieceType) *Piece {
	return &Piece{Type: t, X: SpawnX, Y: SpawnY}
}

// Offsets は現在の回転状態における基準点からの相対座標を返します。
func (p *Piece) Offsets() [4]Point {
	return RotationCells(p.Type, p.Rotation)
}

// Cells はピースを構成する4ブロックのボード上の絶対座標を返します。
func (p *Piece) Cells() [4]Point {
	anchor := Point{X: p.X, Y: p.Y}
	offsets := p.Offsets()
	var cells [4]Point
	for i, o := range offsets {
		cells[i] = anchor.Add(o)
	}
	return cells
}

// Clone は現在のPieceオブジェクトのコピーを返します。
// 操作前のピースの状態を保持しつつ、操作後の状態を仮に試すために使います。
func (p *Piece) Clone() *Piece {
	newP := *p
	return &newP
}

// ResetToSpawn はピースを出現位置・回転0に戻します。ホールドからの入れ替えで使われます。
func (p *Piece) ResetToSpawn() {
	p.X = SpawnX
	p.Y = SpawnY
	p.Rotation = 0
}

// baseShapes は各テトリミノの回転0（出現時の向き）の形状です。
var baseShapes = [NumPieceTypes][4]Point{
	TypeI: {{0, 1}, {1, 1}, {2, 1}, {3, 1}},
	TypeO: {{1, 0}, {2, 0}, {1, 1}, {2, 1}},
	TypeT: {{1, 0}, {0, 1}, {1, 1}, {2, 1}},
	TypeS: {{0, 1}, {1, 1}, {1, 0}, {2, 0}},
	TypeZ: {{0, 0}, {1, 0}, {1, 1}, {2, 1}},
	TypeJ: {{0, 0}, {0, 1}, {1, 1}, {2, 1}},
	TypeL: {{0, 1}, {1, 1}, {2, 1}, {2, 0}},
}

// RotationTable は [PieceType][回転インデックス] ごとの4ブロックの相対座標です。
type RotationTable [NumPieceTypes][NumRotations][4]Point

// rotations は起動時に一度だけ構築され、以後は読み取り専用です。
var rotations = BuildRotationTable()

// BuildRotationTable は基本形状を回転軸まわりに90度ずつ時計回りに回転させて、
// 全テトリミノの4つの回転状態を計算します。
//
// 回転軸は J,L,S,Z,T が (1,1)、I が (1.5,1.5) です。O は回転しません。
// 半整数の回転軸を整数演算で扱うため、座標を2倍して計算します。
func BuildRotationTable() RotationTable {
	var table RotationTable
	for _, t := range AllPieceTypes {
		state := baseShapes[t]
		table[t][0] = state
		for r := 1; r < NumRotations; r++ {
			if t != TypeO {
				state = rotateShape(state, doubledPivot(t))
			}
			table[t][r] = state
		}
	}
	return table
}

// doubledPivot は回転軸を2倍した座標を返します。
func doubledPivot(t PieceType) Point {
	if t == TypeI {
		return Point{3, 3}
	}
	return Point{2, 2}
}

// rotateShape は p' = pivot + rotate90(p - pivot), rotate90(x,y) = (-y,x) を適用します。
func rotateShape(shape [4]Point, pivot2 Point) [4]Point {
	var out [4]Point
	for i, c := range shape {
		dx := 2*c.X - pivot2.X
		dy := 2*c.Y - pivot2.Y
		out[i] = Point{X: (-dy + pivot2.X) / 2, Y: (dx + pivot2.Y) / 2}
	}
	return out
}

// RotationCells は指定された種類・回転インデックスでのブロックの相対座標を返します。
// 範囲外の値はプログラムの不整合なのでpanicします。
//
// Parameters:
//
//	t        : テトリミノの種類
//	rotation : 回転インデックス (0..3)
//
// Returns:
//
//	[4]Point: 各ブロックの相対座標
func RotationCells(t PieceType, rotation int) [4]Point {
	if !t.Valid() {
		panic(fmt.Sprintf("tetris: invalid piece type %d", t))
	}
	if rotation < 0 || rotation >= NumRotations {
		panic(fmt.Sprintf("tetris: invalid rotation index %d for piece %s", rotation, t))
	}
	return rotations[t][rotation]
}

// Valid は種類が7種類のいずれかであるかを返します。
func (t PieceType) Valid() bool {
	return t >= TypeI && t <= TypeL
}

// String はPieceTypeを文字列表現に変換します。
func (t PieceType) String() string {
	switch t {
	case TypeI:
		return "I"
	case TypeO:
		return "O"
	case TypeT:
		return "T"
	case TypeS:
		return "S"
	case TypeZ:
		return "Z"
	case TypeJ:
		return "J"
	case TypeL:
		return "L"
	default:
		return fmt.Sprintf("PieceType(%d)", int(t))
	}
}

// MarshalText はJSON上でピースの種類を "T" のような文字列で表すために使われます。
func (t PieceType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid piece type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText は "T" のような文字列をPieceTypeに変換します。
func (t *PieceType) UnmarshalText(b []byte) error {
	pt, ok := StringToPieceType(string(b))
	if !ok {
		return fmt.Errorf("unknown piece type %q", string(b))
	}
	*t = pt
	return nil
}

// StringToPieceType は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceTypeに変換します。
func StringToPieceType(s string) (PieceType, bool) {
	switch s {
	case "I":
		return TypeI, true
	case "O":
		return TypeO, true
	case "T":
		return TypeT, true
	case "S":
		return TypeS, true
	case "Z":
		return TypeZ, true
	case "J":
		return TypeJ, true
	case "L":
		return TypeL, true
	default:
		return TypeI, false
	}
}
