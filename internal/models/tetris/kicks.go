package tetris

import "fmt"

// KickTable は "回転前>回転後" をキーとした壁蹴り (Wall Kick) の候補オフセット表です。
// 候補は先頭から順に試されます。
type KickTable map[string][4]Point

// KickKey は回転の遷移を表すキー文字列 ("0>1" など) を作ります。
func KickKey(from, to int) string {
	return fmt.Sprintf("%d>%d", from, to)
}

// clockwiseKeys は時計回りの4遷移です。反時計回りはこの逆向きになります。
var clockwiseKeys = [4][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}

// SRS の壁蹴りデータを行が下向きに増える座標系に変換したもの（Y を反転）。
var (
	// J, L, O, S, T, Z 共通。反時計回りの遷移は時計回りの符号反転です。
	jlstzClockwise = [4][4]Point{
		{{-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},  // 0>1
		{{1, 0}, {1, 1}, {0, -2}, {1, -2}},    // 1>2
		{{1, 0}, {1, -1}, {0, 2}, {1, 2}},     // 2>3
		{{-1, 0}, {-1, 1}, {0, -2}, {-1, -2}}, // 3>0
	}

	// I-ミノ専用。対称ではないので8遷移すべてを書き出します。
	iKicks = map[string][4]Point{
		"0>1": {{-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
		"1>0": {{2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
		"1>2": {{-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
		"2>1": {{1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
		"2>3": {{2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
		"3>2": {{-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
		"3>0": {{1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
		"0>3": {{-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
	}
)

var standardKickTable, iKickTable = buildKickTables()

// buildKickTables は起動時に一度だけ呼ばれ、以後変更されない2つの表を返します。
func buildKickTables() (KickTable, KickTable) {
	standard := make(KickTable, 8)
	for i, k := range clockwiseKeys {
		cw := jlstzClockwise[i]
		var ccw [4]Point
		for j, p := range cw {
			ccw[j] = p.Neg()
		}
		standard[KickKey(k[0], k[1])] = cw
		standard[KickKey(k[1], k[0])] = ccw
	}

	iTable := make(KickTable, len(iKicks))
	for k, v := range iKicks {
		iTable[k] = v
	}
	return standard, iTable
}

// KickTableFor はピースの種類に対応する壁蹴り表を返します。I-ミノだけが専用の表を使います。
func KickTableFor(t PieceType) KickTable {
	if t == TypeI {
		return iKickTable
	}
	return standardKickTable
}

// WallKicks は指定された回転遷移で試す4つのオフセットを返します。
// 存在しないキーはプログラムの不整合なのでpanicします。
func WallKicks(t PieceType, from, to int) [4]Point {
	key := KickKey(from, to)
	kicks, ok := KickTableFor(t)[key]
	if !ok {
		panic(fmt.Sprintf("tetris: no wall kick data for %s %s", t, key))
	}
	return kicks
}
