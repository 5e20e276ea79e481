package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

func loadSnapshot(i int) models.Snapshot {
	return models.Snapshot{Reading: models.Reading{
		ReadingID: fmt.Sprintf("load-%d", i),
		Stress:    "Normal",
		Warning:   "load.test",
		BPM:       60 + i%40,
	}}
}

func TestSSE_Load(t *testing.T) {
	hub := NewSSEHub(encoding.NewJSONEncoder(), nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	var wg sync.WaitGroup
	var totalReceived int64

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			reqCtx, reqCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer reqCancel()
			req, _ := http.NewRequestWithContext(reqCtx, "GET", ts.URL, nil)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()

			buf := make([]byte, 8192)
			for {
				n, err := resp.Body.Read(buf)
				count := strings.Count(string(buf[:n]), "load.test")
				atomic.AddInt64(&totalReceived, int64(count))
				if err == io.EOF || err != nil {
					break
				}
			}
		}()
	}

	waitFor(t, func() bool { return hub.GetClientCount() == 5 })

	for i := 0; i < 50; i++ {
		hub.Broadcast(loadSnapshot(i))
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	hub.Close()
	wg.Wait()

	t.Logf("Total received: %d (expected ~250)", totalReceived)
	if totalReceived < 200 {
		t.Errorf("Too many dropped: got %d, want >= 200", totalReceived)
	}
}

func TestUDP_Load(t *testing.T) {
	server := NewUDPServer("127.0.0.1", 18889, encoding.NewJSONEncoder(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	var totalReceived int64

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			clientAddr, _ := net.ResolveUDPAddr("udp", "127.0.0.1:0")
			client, err := net.ListenUDP("udp", clientAddr)
			if err != nil {
				return
			}
			defer client.Close()

			serverAddr, _ := net.ResolveUDPAddr("udp", "127.0.0.1:18889")
			client.WriteToUDP([]byte("subscribe"), serverAddr)

			buf := make([]byte, 4096)
			client.SetReadDeadline(time.Now().Add(3 * time.Second))

			for {
				n, err := client.Read(buf)
				if err != nil {
					break
				}
				if strings.Contains(string(buf[:n]), "load.test") {
					atomic.AddInt64(&totalReceived, 1)
				}
			}
		}()
	}

	waitFor(t, func() bool { return server.GetClientCount() == 5 })

	for i := 0; i < 50; i++ {
		server.Broadcast(loadSnapshot(i))
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	cancel()
	wg.Wait()

	t.Logf("Total received: %d (expected ~250)", totalReceived)
	if totalReceived < 200 {
		t.Errorf("Too many dropped: got %d, want >= 200", totalReceived)
	}
}
