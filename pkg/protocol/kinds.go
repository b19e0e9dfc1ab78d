package protocol

// Request types. The values are part of the wire protocol and never change.
const (
	RequestLeader    uint8 = 0
	RequestClient    uint8 = 1
	RequestHeartbeat uint8 = 2
	RequestOpen      uint8 = 3
	RequestPrepare   uint8 = 4
	RequestExec      uint8 = 5
	RequestQuery     uint8 = 6
	RequestFinalize  uint8 = 7
	RequestExecSQL   uint8 = 8
	RequestQuerySQL  uint8 = 9
	RequestInterrupt uint8 = 10
)

// Response types.
const (
	ResponseFailure uint8 = 0
	ResponseServer  uint8 = 1
	ResponseWelcome uint8 = 2
	ResponseServers uint8 = 3
	ResponseDb      uint8 = 4
	ResponseStmt    uint8 = 5
	ResponseResult  uint8 = 6
	ResponseRows    uint8 = 7
	ResponseEmpty   uint8 = 8
)

// Terminator values for the rows response.
const (
	RowsPart uint64 = 0 // More rows follow in further responses
	RowsDone uint64 = 1 // The statement is exhausted
)

// RequestName returns a human-readable name for a request type.
func RequestName(kind uint8) string {
	switch kind {
	case RequestLeader:
		return "leader"
	case RequestClient:
		return "client"
	case RequestHeartbeat:
		return "heartbeat"
	case RequestOpen:
		return "open"
	case RequestPrepare:
		return "prepare"
	case RequestExec:
		return "exec"
	case RequestQuery:
		return "query"
	case RequestFinalize:
		return "finalize"
	case RequestExecSQL:
		return "exec_sql"
	case RequestQuerySQL:
		return "query_sql"
	case RequestInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}
