package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame header layout: a 32-bit body length in 8-byte words, the message
// type, one flags byte and a 16-bit extra field, all little-endian.
const headerSize = 8

func writeFrame(w io.Writer, kind uint8, body []byte) error {
	if len(body)%8 != 0 {
		// Word-align the body; writers pad strings and blobs already,
		// this covers the odd parameter header.
		padded := make([]byte, ((len(body)+7)&^7)-len(body))
		body = append(body, padded...)
	}
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], uint32(len(body)/8))
	header[4] = kind
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) (uint8, *Message, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	words := binary.LittleEndian.Uint32(header[0:])
	kind := header[4]
	if int(words)*8 > MessageMaxSize {
		return 0, nil, fmt.Errorf("frame of %d words exceeds message limit", words)
	}
	body := make([]byte, int(words)*8)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return kind, FromBytes(body), nil
}

// EncodeRequest writes a framed request.
func EncodeRequest(w io.Writer, req *Request) error {
	m := NewMessage()
	var err error
	switch req.Type {
	case RequestLeader, RequestInterrupt:
		err = m.PutUint64(0)
	case RequestClient:
		err = m.PutUint64(req.Client.ID)
	case RequestHeartbeat:
		err = m.PutUint64(req.Timestamp)
	case RequestOpen:
		if err = m.PutString(req.Open.Name); err == nil {
			err = m.PutUint64(req.Open.Flags)
		}
	case RequestPrepare:
		if err = m.PutUint64(uint64(req.Prepare.DbID)); err == nil {
			err = m.PutString(req.Prepare.SQL)
		}
	case RequestExec, RequestQuery, RequestFinalize:
		args := req.Exec
		if req.Type == RequestQuery {
			args = req.Query
		} else if req.Type == RequestFinalize {
			args = req.Finalize
		}
		if err = m.PutUint32(args.DbID); err == nil {
			err = m.PutUint32(args.StmtID)
		}
	case RequestExecSQL, RequestQuerySQL:
		args := req.ExecSQL
		if req.Type == RequestQuerySQL {
			args = req.QuerySQL
		}
		if err = m.PutUint64(uint64(args.DbID)); err == nil {
			err = m.PutString(args.SQL)
		}
	default:
		return fmt.Errorf("cannot encode request type %d", req.Type)
	}
	if err != nil {
		return err
	}
	if req.Message != nil {
		for _, b := range req.Message.Bytes() {
			if err := m.PutUint8(b); err != nil {
				return err
			}
		}
	}
	return writeFrame(w, req.Type, m.Bytes())
}

// DecodeRequest reads one framed request.
func DecodeRequest(r io.Reader) (*Request, error) {
	kind, m, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	req := &Request{Type: kind}
	switch kind {
	case RequestLeader, RequestInterrupt:
		_, err = m.GetUint64()
	case RequestClient:
		req.Client.ID, err = m.GetUint64()
	case RequestHeartbeat:
		req.Timestamp, err = m.GetUint64()
	case RequestOpen:
		if req.Open.Name, err = m.GetString(); err == nil {
			req.Open.Flags, err = m.GetUint64()
		}
	case RequestPrepare:
		var dbID uint64
		if dbID, err = m.GetUint64(); err == nil {
			req.Prepare.DbID = uint32(dbID)
			req.Prepare.SQL, err = m.GetString()
		}
	case RequestExec, RequestQuery, RequestFinalize:
		var args RequestStmtArgs
		if args.DbID, err = m.GetUint32(); err == nil {
			args.StmtID, err = m.GetUint32()
		}
		req.Exec, req.Query, req.Finalize = args, args, args
	case RequestExecSQL, RequestQuerySQL:
		var args RequestSQLArgs
		var dbID uint64
		if dbID, err = m.GetUint64(); err == nil {
			args.DbID = uint32(dbID)
			args.SQL, err = m.GetString()
		}
		req.ExecSQL, req.QuerySQL = args, args
	default:
		// Unknown kinds are legal at this layer; the gateway answers
		// them with a generic failure.
	}
	if err != nil {
		return nil, fmt.Errorf("malformed %s request: %w", RequestName(kind), err)
	}
	// Whatever trails the fixed fields is the bind parameter block.
	req.Message = FromBytes(m.body[m.off:])
	return req, nil
}

// EncodeResponse writes a framed response.
func EncodeResponse(w io.Writer, resp *Response) error {
	m := NewMessage()
	var err error
	switch resp.Type {
	case ResponseFailure:
		if err = m.PutUint64(resp.Failure.Code); err == nil {
			err = m.PutString(resp.Failure.Message)
		}
	case ResponseServer:
		err = m.PutString(resp.Server.Address)
	case ResponseWelcome:
		err = m.PutUint64(resp.Welcome.HeartbeatTimeout)
	case ResponseServers:
		if err = m.PutUint64(uint64(len(resp.Servers))); err != nil {
			break
		}
		for _, server := range resp.Servers {
			if err = m.PutUint64(server.ID); err != nil {
				break
			}
			if err = m.PutString(server.Address); err != nil {
				break
			}
		}
	case ResponseDb:
		if err = m.PutUint32(resp.Db.ID); err == nil {
			err = m.PutUint32(0)
		}
	case ResponseStmt:
		if err = m.PutUint32(resp.Stmt.DbID); err == nil {
			if err = m.PutUint32(resp.Stmt.ID); err == nil {
				err = m.PutUint64(resp.Stmt.Params)
			}
		}
	case ResponseResult:
		if err = m.PutUint64(resp.Result.LastInsertID); err == nil {
			err = m.PutUint64(resp.Result.RowsAffected)
		}
	case ResponseRows:
		if err = m.PutUint64(resp.Rows.EOF); err != nil {
			break
		}
		for _, b := range resp.Message.Bytes() {
			if err = m.PutUint8(b); err != nil {
				break
			}
		}
	case ResponseEmpty:
		err = m.PutUint64(0)
	default:
		return fmt.Errorf("cannot encode response type %d", resp.Type)
	}
	if err != nil {
		return err
	}
	return writeFrame(w, resp.Type, m.Bytes())
}

// DecodeResponse reads one framed response.
func DecodeResponse(r io.Reader) (*Response, error) {
	kind, m, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	resp := &Response{Type: kind, Message: NewMessage()}
	switch kind {
	case ResponseFailure:
		if resp.Failure.Code, err = m.GetUint64(); err == nil {
			resp.Failure.Message, err = m.GetString()
		}
	case ResponseServer:
		resp.Server.Address, err = m.GetString()
	case ResponseWelcome:
		resp.Welcome.HeartbeatTimeout, err = m.GetUint64()
	case ResponseServers:
		var n uint64
		if n, err = m.GetUint64(); err != nil {
			break
		}
		resp.Servers = make([]ServerInfo, 0, n)
		for i := uint64(0); i < n; i++ {
			var server ServerInfo
			if server.ID, err = m.GetUint64(); err != nil {
				break
			}
			if server.Address, err = m.GetString(); err != nil {
				break
			}
			resp.Servers = append(resp.Servers, server)
		}
	case ResponseDb:
		resp.Db.ID, err = m.GetUint32()
	case ResponseStmt:
		if resp.Stmt.DbID, err = m.GetUint32(); err == nil {
			if resp.Stmt.ID, err = m.GetUint32(); err == nil {
				resp.Stmt.Params, err = m.GetUint64()
			}
		}
	case ResponseResult:
		if resp.Result.LastInsertID, err = m.GetUint64(); err == nil {
			resp.Result.RowsAffected, err = m.GetUint64()
		}
	case ResponseRows:
		if resp.Rows.EOF, err = m.GetUint64(); err == nil {
			resp.Message = FromBytes(m.body[m.off:])
		}
	case ResponseEmpty:
		_, err = m.GetUint64()
	default:
		return nil, fmt.Errorf("unknown response type %d", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return resp, nil
}
