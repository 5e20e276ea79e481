package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// startUDP runs a server on port and returns a connected display client.
func startUDP(t *testing.T, port int, enc encoding.Encoder) (*UDPServer, *net.UDPConn) {
	t.Helper()
	server := NewUDPServer("127.0.0.1", port, enc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	serverAddr, _ := net.ResolveUDPAddr("udp", server.GetAddress()[len("udp://"):])
	client, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		t.Fatalf("failed to create display client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return server, client
}

func TestUDPServer_ProtobufReading(t *testing.T) {
	server, client := startUDP(t, 19881, encoding.NewProtobufEncoder())

	client.Write([]byte("subscribe"))
	waitFor(t, func() bool { return server.GetClientCount() == 1 })

	r := models.Reading{ReadingID: "r-9", Stress: "High", Warning: "Breathe slowly", BPM: 131, HRV: 17.5, SpO2: 95, IsSensorActive: true}
	server.Broadcast(models.NewSnapshot(r, time.Unix(1700000123, 0)))

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("failed to receive: %v", err)
	}

	fields, err := encoding.DecodeProtobuf(buf[:n])
	if err != nil {
		t.Fatalf("datagram is not a protobuf struct: %v", err)
	}
	if fields["stress"] != "High" || fields["reading_id"] != "r-9" {
		t.Errorf("unexpected reading fields: %v", fields)
	}
	if fields["bpm"] != float64(131) || fields["hrv"] != 17.5 {
		t.Errorf("vitals = bpm %v hrv %v", fields["bpm"], fields["hrv"])
	}
	if fields["server_now"] != float64(1700000123) {
		t.Errorf("server_now = %v", fields["server_now"])
	}
}

func TestUDPServer_DisplayRegistration(t *testing.T) {
	server, client := startUDP(t, 19882, encoding.NewJSONEncoder())

	if server.GetClientCount() != 0 {
		t.Errorf("expected 0 displays, got %d", server.GetClientCount())
	}

	// Any datagram registers the sender; repeats do not duplicate it.
	client.Write([]byte("hello from display"))
	client.Write([]byte("hello again"))
	waitFor(t, func() bool { return server.GetClientCount() == 1 })
	time.Sleep(50 * time.Millisecond)
	if server.GetClientCount() != 1 {
		t.Errorf("expected 1 display, got %d", server.GetClientCount())
	}

	client.Write([]byte("unsubscribe"))
	waitFor(t, func() bool { return server.GetClientCount() == 0 })

	// Unsubscribed displays no longer receive readings.
	server.Broadcast(models.Snapshot{Reading: models.Reading{Stress: "Low"}})
	buf := make([]byte, 1024)
	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if n, err := client.Read(buf); err == nil {
		t.Errorf("unexpected datagram after unsubscribe: %s", buf[:n])
	}
}

func TestUDPServer_Address(t *testing.T) {
	server := NewUDPServer("0.0.0.0", 5002, nil, nil)
	if addr := server.GetAddress(); addr != "udp://0.0.0.0:5002" {
		t.Errorf("wrong address: %s", addr)
	}
}
