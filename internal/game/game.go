package game

import (
	"fmt"
	"log"
)

const (
	// Número de pedras que cada cova pequena recebe no início da partida.
	StonesPerPit = 6

	// Número de covas pequenas que pertencem a cada jogador.
	SmallPitsPerUser = 6

	// boardSize = covas pequenas dos dois lados + as duas covas grandes (stores).
	boardSize = 2*SmallPitsPerUser + 2
)

// Game é o motor de regras de UMA partida. Ele é puro e síncrono: nenhuma
// goroutine, nenhum I/O. Cada ConnectionHandler possui a sua própria instância,
// então não há estado compartilhado para proteger.
//
// O tabuleiro é um array circular: {6, 6, 6, 6, 6, 6, 0, 6, 6, 6, 6, 6, 6, 0}.
// Os índices SmallPitsPerUser e boardSize-1 são as covas grandes.
type Game struct {
	turn bool
	pits []int

	// userStartingIndex define qual metade do array pertence ao jogador local:
	// 0 ou SmallPitsPerUser+1. O adversário fica com a outra metade.
	userStartingIndex     int
	opponentStartingIndex int
}

// New cria o tabuleiro inicial. Os dois lados calculam o mesmo par
// (turn, userStartingIndex) de forma determinística, então as duas instâncias
// do motor ficam espelhadas sem nenhuma negociação extra.
func New(turn bool, userStartingIndex int) *Game {
	g := &Game{
		turn:              turn,
		pits:              make([]int, boardSize),
		userStartingIndex: userStartingIndex,
	}

	if userStartingIndex == 0 {
		g.opponentStartingIndex = SmallPitsPerUser + 1
	} else {
		g.opponentStartingIndex = 0
	}

	for i := 0; i < SmallPitsPerUser; i++ {
		g.pits[i] = StonesPerPit
	}
	g.pits[SmallPitsPerUser] = 0
	for i := SmallPitsPerUser + 1; i < len(g.pits)-1; i++ {
		g.pits[i] = StonesPerPit
	}
	g.pits[len(g.pits)-1] = 0

	return g
}

// Turn informa de quem é a vez.
func (g *Game) Turn() bool {
	return g.turn
}

// State retorna uma cópia do tabuleiro. O array interno nunca escapa.
func (g *Game) State() []int {
	state := make([]int, len(g.pits))
	copy(state, g.pits)
	return state
}

// LoadState substitui o tabuleiro por um estado arbitrário. Existe para os
// testes montarem cenários de captura e fim de jogo no meio de uma partida.
func (g *Game) LoadState(pits []int) error {
	if len(pits) != boardSize {
		return fmt.Errorf("estado inválido: esperado %d covas, recebeu %d", boardSize, len(pits))
	}
	copy(g.pits, pits)
	return nil
}

func (g *Game) modularized(index int) int {
	return index % len(g.pits)
}

func (g *Game) isInUserRange(pitIndex int) bool {
	m := g.modularized(pitIndex)
	return m >= g.userStartingIndex && m < g.userStartingIndex+SmallPitsPerUser
}

func (g *Game) isInOpponentRange(pitIndex int) bool {
	m := g.modularized(pitIndex)
	return m >= g.opponentStartingIndex && m < g.opponentStartingIndex+SmallPitsPerUser
}

// isInPlayerRange verifica se o índice pertence às covas pequenas de quem está
// jogando AGORA, seja o jogador local ou o adversário.
func (g *Game) isInPlayerRange(pitIndex int) bool {
	return (g.turn && g.isInUserRange(pitIndex)) || (!g.turn && g.isInOpponentRange(pitIndex))
}

func (g *Game) userLargePit() int {
	return g.userStartingIndex + SmallPitsPerUser
}

func (g *Game) opponentLargePit() int {
	if g.userStartingIndex == 0 {
		return len(g.pits) - 1
	}
	return g.userStartingIndex - 1
}

func (g *Game) isLargePitOfPlayer(pitIndex int) bool {
	m := g.modularized(pitIndex)
	return (g.turn && m == g.userLargePit()) || (!g.turn && m == g.opponentLargePit())
}

// isForbiddenLargePit: durante a semeadura, a cova grande do ADVERSÁRIO de quem
// move é pulada. A cova grande do próprio jogador recebe pedra normalmente.
func (g *Game) isForbiddenLargePit(pitIndex int) bool {
	m := g.modularized(pitIndex)
	return (g.turn && m == g.opponentLargePit()) || (!g.turn && m == g.userLargePit())
}

func (g *Game) playerLargePitIndex() int {
	if g.turn {
		return g.userLargePit()
	}
	return g.opponentLargePit()
}

func (g *Game) oppositeIndex(pitIndex int) int {
	return 2*SmallPitsPerUser - g.modularized(pitIndex)
}

// isEnded verifica cova por cova se um dos lados inteiros está vazio.
func (g *Game) isEnded() bool {
	ended := true
	for i := 0; i < SmallPitsPerUser; i++ {
		if g.pits[i] != 0 {
			ended = false
			break
		}
	}

	if !ended {
		ended = true
		for i := SmallPitsPerUser + 1; i < len(g.pits)-1; i++ {
			if g.pits[i] != 0 {
				ended = false
				break
			}
		}
	}

	return ended
}

// Normalized converte o número de cova que o cliente enxerga (1..6, sempre "a
// minha cova N") para o índice absoluto no tabuleiro de quem está jogando agora.
func (g *Game) Normalized(pitIndex int) int {
	pitIndex--

	var normalized int
	if g.turn {
		normalized = pitIndex + g.userStartingIndex
	} else {
		normalized = pitIndex + g.opponentStartingIndex
	}

	log.Printf("[Game] Pit index %d normalizado para %d", pitIndex+1, normalized)
	return normalized
}

// Move aplica uma jogada e retorna true se ela encerrou a partida.
//
// Jogadas inválidas (índice fora do tabuleiro, cova que não é de quem joga,
// cova vazia) são apenas logadas: o tabuleiro não muda e nenhum erro sobe para
// o chamador. O protocolo trata jogada ilegal como ruído, não como falha.
func (g *Game) Move(pitIndex int) bool {
	log.Printf("[Game] Move %d recebido (turn=%v, userStartingIndex=%d)", pitIndex, g.turn, g.userStartingIndex)

	switch {
	case pitIndex < 0 || pitIndex >= len(g.pits):
		log.Printf("[Game] Número de cova inválido: %d", pitIndex)
	case !g.isInPlayerRange(pitIndex):
		log.Printf("[Game] Jogada inválida: turn=%v, cova %d não pertence ao jogador da vez", g.turn, pitIndex)
	case g.pits[pitIndex] == 0:
		log.Printf("[Game] Cova %d está vazia", pitIndex)
	default:
		stones := g.pits[pitIndex]

		// Semeadura circular: a cova de origem é decrementada a cada pedra
		// depositada, então numa volta completa ela pode receber pedras de
		// volta. A cova grande do adversário é pulada sem consumir pedra.
		index := pitIndex + 1
		for stones != 0 {
			if !g.isForbiddenLargePit(index) {
				stones--
				g.pits[g.modularized(index)]++
				g.pits[pitIndex]--
			}
			index++
		}

		last := g.modularized(index - 1)

		// Captura: a última pedra caiu numa cova própria que estava vazia.
		// A pedra e todo o conteúdo da cova espelhada vão para a cova grande.
		if g.isInPlayerRange(last) && g.pits[last] == 1 {
			g.pits[last] = 0
			g.pits[g.playerLargePitIndex()]++
			g.pits[g.playerLargePitIndex()] += g.pits[g.oppositeIndex(last)]
			g.pits[g.oppositeIndex(last)] = 0
		}

		// Terminar na própria cova grande dá uma jogada extra.
		if !g.isLargePitOfPlayer(last) {
			g.turn = !g.turn
		}
	}

	log.Printf("[Game] Estado do tabuleiro: %v", g.pits)

	return g.isEnded()
}
