// Package action encodes and decodes the compact callback tokens carried in
// Telegram inline keyboard buttons. A token is the action kind followed by
// its arguments, all joined with underscores, so it fits Telegram's 64 byte
// callback data limit.
package action

import "strings"

// Kind identifies what an operator button does.
type Kind string

const (
	KindSend          Kind = "send"
	KindCancel        Kind = "cancel"
	KindQuickReply    Kind = "quickreply"
	KindSendQR        Kind = "sendqr"
	KindAddLabel      Kind = "addlabel"
	KindHistory       Kind = "history"
	KindHistoryFilter Kind = "historyfilter"
	KindDone          Kind = "done"
	KindClose         Kind = "close"
	KindNoop          Kind = "noop"
)

// minArity is the minimum argument count each kind needs to be actionable.
// Confirmation tokens themselves contain underscores, so send and cancel
// receive at least one segment and the consumer rejoins the rest.
var minArity = map[Kind]int{
	KindSend:          1,
	KindCancel:        1,
	KindQuickReply:    3,
	KindSendQR:        4,
	KindAddLabel:      1,
	KindHistory:       1,
	KindHistoryFilter: 2,
	KindDone:          0,
	KindClose:         0,
	KindNoop:          0,
}

// Action is a decoded callback token.
type Action struct {
	Kind Kind
	Args []string
}

// Decode parses callback data into an Action. Unknown kinds and tokens with
// too few arguments decode to a noop rather than an error, so a stale or
// foreign button press never crashes the callback path.
func Decode(data string) Action {
	parts := strings.Split(data, "_")
	kind := Kind(parts[0])
	arity, known := minArity[kind]
	if !known || len(parts)-1 < arity {
		return Action{Kind: KindNoop}
	}
	return Action{Kind: kind, Args: parts[1:]}
}

// Encode builds callback data from a kind and its arguments.
func Encode(kind Kind, args ...string) string {
	if len(args) == 0 {
		return string(kind)
	}
	return string(kind) + "_" + strings.Join(args, "_")
}

// JoinArgs reassembles args that were split apart because the original value
// itself contained underscores, such as a confirmation token.
func JoinArgs(args []string) string {
	return strings.Join(args, "_")
}
