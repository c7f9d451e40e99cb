// Package protocol define o vocabulário de texto trocado pelo broker e pelo
// socket. Todas as mensagens são texto puro com payload separado por "=",
// exceto as instruções de jogo, que usam o prefixo "##".
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Mensagens roteadas pelo broker (destination = userId do alvo).
	GameRequestPrefix = "game_request"
	AcceptPrefix      = "accept"
	RejectPrefix      = "reject"
	StartPrefix       = "start"

	// Instruções de jogo, mesma codificação no broker e no socket: "##<n>".
	InstructionPrefix = "##"

	// Mensagens servidor -> cliente.
	WhoseTurnMessage    = "turn"
	NotWhoseTurnMessage = "~turn"
	OpponentPrefix      = "opponent"
	WaitingMessage      = "wait-for-game"
	GameEndMessage      = "end-of-game"
	StatePrefix         = "state"
)

// ============================================================================
// Construtores
// ============================================================================

// BuildGameRequestMessage monta a mensagem publicada no broker convidando
// outro usuário para jogar.
func BuildGameRequestMessage(requester string) string {
	return fmt.Sprintf("%s=%s", GameRequestPrefix, requester)
}

// BuildAcceptMessage monta a mensagem de aceite de um convite.
func BuildAcceptMessage(accepter string) string {
	return fmt.Sprintf("%s=%s", AcceptPrefix, accepter)
}

// BuildRejectMessage monta a mensagem que desfaz uma partida em andamento.
func BuildRejectMessage(rejector string) string {
	return fmt.Sprintf("%s=%s", RejectPrefix, rejector)
}

// BuildStartMessage monta a mensagem que confirma o início da partida.
func BuildStartMessage(starter string) string {
	return fmt.Sprintf("%s=%s", StartPrefix, starter)
}

// BuildInstructionMessage monta uma instrução de jogo ("##<n>").
func BuildInstructionMessage(instruction string) string {
	return fmt.Sprintf("%s%s", InstructionPrefix, instruction)
}

// BuildOpponentMessage avisa o cliente que a partida começou e contra quem.
func BuildOpponentMessage(displayName string) string {
	return fmt.Sprintf("%s=%s", OpponentPrefix, displayName)
}

// BuildTurnMessage avisa o cliente de quem é a vez.
func BuildTurnMessage(turn bool) string {
	if turn {
		return WhoseTurnMessage
	}
	return NotWhoseTurnMessage
}

// BuildStateMessage serializa o tabuleiro inteiro mais a flag de vez:
// "state=6,6,6,6,6,6,0,6,6,6,6,6,6,0;turn=true".
func BuildStateMessage(pits []int, turn bool) string {
	values := make([]string, len(pits))
	for i, pit := range pits {
		values[i] = strconv.Itoa(pit)
	}
	return fmt.Sprintf("%s=%s;%s=%v", StatePrefix, strings.Join(values, ","), WhoseTurnMessage, turn)
}

// ============================================================================
// Predicados
// ============================================================================

func IsGameRequestMessage(message string) bool {
	return strings.HasPrefix(message, GameRequestPrefix)
}

func IsGameAcceptedMessage(message string) bool {
	return strings.HasPrefix(message, AcceptPrefix)
}

func IsGameRejectedMessage(message string) bool {
	return strings.HasPrefix(message, RejectPrefix)
}

func IsGameStartMessage(message string) bool {
	return strings.HasPrefix(message, StartPrefix)
}

func IsGameInstructionMessage(message string) bool {
	return strings.HasPrefix(message, InstructionPrefix)
}

func IsStateMessage(message string) bool {
	return strings.HasPrefix(message, StatePrefix+"=")
}

// ============================================================================
// Extratores: devolvem o payload e um ok indicando se o prefixo confere.
// ============================================================================

func FetchRequester(message string) (string, bool) {
	return fetchPayload(message, GameRequestPrefix)
}

func FetchAccepter(message string) (string, bool) {
	return fetchPayload(message, AcceptPrefix)
}

func FetchStarter(message string) (string, bool) {
	return fetchPayload(message, StartPrefix)
}

func FetchInstruction(message string) (string, bool) {
	if !IsGameInstructionMessage(message) {
		return "", false
	}
	return strings.TrimPrefix(message, InstructionPrefix), true
}

// FetchState desfaz BuildStateMessage, devolvendo as covas e a flag de vez.
func FetchState(message string) ([]int, bool, bool) {
	payload, ok := fetchPayload(message, StatePrefix)
	if !ok {
		return nil, false, false
	}
	parts := strings.Split(payload, ";")
	if len(parts) != 2 {
		return nil, false, false
	}
	turnPayload, ok := fetchPayload(parts[1], WhoseTurnMessage)
	if !ok {
		return nil, false, false
	}
	turn, err := strconv.ParseBool(turnPayload)
	if err != nil {
		return nil, false, false
	}
	values := strings.Split(parts[0], ",")
	pits := make([]int, len(values))
	for i, value := range values {
		pit, err := strconv.Atoi(value)
		if err != nil {
			return nil, false, false
		}
		pits[i] = pit
	}
	return pits, turn, true
}

func fetchPayload(message, prefix string) (string, bool) {
	if !strings.HasPrefix(message, prefix+"=") {
		return "", false
	}
	return strings.TrimPrefix(message, prefix+"="), true
}
