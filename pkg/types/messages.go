package types

// Every frame is a JSON object {type, request_id?, payload?}. request_id is
// echoed on the ack, error or query response to the frame that carried it.

// Client -> Server
// start_combat: {}
//
// assign_turn:
//   participant_id: string
//   force: boolean            // replace a current holder (leader recovery)
//
// end_turn: {}
// release_turn: {}
// advance_round: {}
//
// end_combat:
//   reason: string            // "victory" when empty
//
// chat:
//   channel_id: string        // "group" or "secret_N"
//   text: string
//
// create_channel:
//   name: string
//   members: string[]         // participant ids, at least 2
//
// mark_read:
//   channel_id: string
//
// history:
//   channel_id: string
//   before_seq: number        // 0 for the newest page
//   limit: number             // 50 by default, 200 at most
//
// update_status:
//   participant_id: string    // omitted means self
//   status: { [attr]: number }
//
// kick:
//   participant_id: string
//
// leave: {}
// close_room: {}
// ping: {}
// request_sync: {}
const (
	ClientStartCombat   = "start_combat"
	ClientAssignTurn    = "assign_turn"
	ClientEndTurn       = "end_turn"
	ClientReleaseTurn   = "release_turn"
	ClientAdvanceRound  = "advance_round"
	ClientEndCombat     = "end_combat"
	ClientChat          = "chat"
	ClientCreateChannel = "create_channel"
	ClientMarkRead      = "mark_read"
	ClientHistory       = "history"
	ClientUpdateStatus  = "update_status"
	ClientKick          = "kick"
	ClientLeave         = "leave"
	ClientCloseRoom     = "close_room"
	ClientPing          = "ping"
	ClientRequestSync   = "request_sync"
)

// Server -> Client
// welcome:       Welcome, sent once after the upgrade
// notification:  Notification
// ack:           Ack
// error:         Error, only ever sent to the requester
// pong:          Pong
// full_sync:     Snapshot
// history:       History
//
// Notifications carry the room version. A notification whose version is not
// greater than the last snapshot's version is already reflected in it.
const (
	ServerWelcome      = "welcome"
	ServerNotification = "notification"
	ServerAck          = "ack"
	ServerError        = "error"
	ServerPong         = "pong"
	ServerFullSync     = "full_sync"
	ServerHistory      = "history"
)
