package protocol

import (
	"bytes"
	"testing"
)

func TestCodec_RequestRoundTrip(t *testing.T) {
	req := &Request{Type: RequestExecSQL}
	req.ExecSQL.DbID = 0
	req.ExecSQL.SQL = "INSERT INTO t VALUES(?)"
	req.Message = NewMessage()
	if err := EncodeParams(req.Message, []Value{int64(7)}); err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeRequest(&buf, req); err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	decoded, err := DecodeRequest(&buf)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if decoded.Type != RequestExecSQL {
		t.Fatalf("Expected type %d, got %d", RequestExecSQL, decoded.Type)
	}
	if decoded.ExecSQL.SQL != req.ExecSQL.SQL {
		t.Errorf("Expected SQL %q, got %q", req.ExecSQL.SQL, decoded.ExecSQL.SQL)
	}
	values, err := DecodeParams(decoded.Message)
	if err != nil {
		t.Fatalf("DecodeParams failed: %v", err)
	}
	if len(values) != 1 || values[0] != int64(7) {
		t.Errorf("Expected parameter 7, got %v", values)
	}
}

func TestCodec_HeartbeatRoundTrip(t *testing.T) {
	req := &Request{Type: RequestHeartbeat, Timestamp: 99}
	var buf bytes.Buffer
	if err := EncodeRequest(&buf, req); err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	decoded, err := DecodeRequest(&buf)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if decoded.Timestamp != 99 {
		t.Errorf("Expected timestamp 99, got %d", decoded.Timestamp)
	}
}

func TestCodec_FailureResponseRoundTrip(t *testing.T) {
	resp := NewResponse()
	resp.Type = ResponseFailure
	resp.Failure.Code = CodeBusy
	resp.Failure.Message = "a database for this connection is already open"

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, resp); err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(&buf)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.Failure.Code != CodeBusy {
		t.Errorf("Expected code %d, got %d", CodeBusy, decoded.Failure.Code)
	}
	if decoded.Failure.Message != resp.Failure.Message {
		t.Errorf("Expected message %q, got %q", resp.Failure.Message, decoded.Failure.Message)
	}
}

func TestCodec_RowsResponseRoundTrip(t *testing.T) {
	resp := NewResponse()
	resp.Type = ResponseRows
	resp.Rows.EOF = RowsPart
	writer, err := NewRowWriter(resp.Message, []string{"n"})
	if err != nil {
		t.Fatalf("NewRowWriter failed: %v", err)
	}
	if err := writer.WriteRow([]Value{int64(42)}); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, resp); err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(&buf)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.Rows.EOF != RowsPart {
		t.Fatalf("Expected terminator part, got %d", decoded.Rows.EOF)
	}
	reader, err := NewRowReader(decoded.Message)
	if err != nil {
		t.Fatalf("NewRowReader failed: %v", err)
	}
	row, err := reader.ReadRow()
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if row[0] != int64(42) {
		t.Errorf("Expected 42, got %v", row[0])
	}
}

func TestCodec_ServersResponseRoundTrip(t *testing.T) {
	resp := NewResponse()
	resp.Type = ResponseServers
	resp.Servers = []ServerInfo{
		{ID: 1, Address: "10.0.0.1:9001"},
		{ID: 2, Address: "10.0.0.2:9001"},
	}

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, resp); err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(&buf)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(decoded.Servers) != 2 {
		t.Fatalf("Expected 2 servers, got %d", len(decoded.Servers))
	}
	if decoded.Servers[1] != resp.Servers[1] {
		t.Errorf("Expected %+v, got %+v", resp.Servers[1], decoded.Servers[1])
	}
}
