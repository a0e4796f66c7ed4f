package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/pkg/pb"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	backendURL = flag.String("http", "http://localhost:8081", "HTTP base URL")
	grpcAddr   = flag.String("grpc", "localhost:50051", "gRPC address")
	apiKey     = flag.String("api-key", os.Getenv("API_KEY"), "value for X-Vision-API-Key")
)

// scenario is a short drive: alert, eyes closing, a yawn, a head drop.
func scenario() []classifier.LandmarkSet {
	layout := classifier.MediaPipeFaceMesh
	var frames []classifier.LandmarkSet
	add := func(n int, ear, mar, angle float64) {
		for i := 0; i < n; i++ {
			frames = append(frames, classifier.SyntheticFace(layout, ear, mar, angle))
		}
	}
	add(5, 0.30, 0.20, 0)
	add(4, 0.15, 0.20, 0)
	add(4, 0.30, 0.90, 0)
	add(2, 0.30, 0.20, 60)
	return frames
}

func post(path string, body interface{}) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequest(http.MethodPost, *backendURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vision-API-Key", *apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return out, resp.StatusCode, err
}

func get(path string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, *backendURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("X-Vision-API-Key", *apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return out, resp.StatusCode, err
}

func printResult(r *models.DetectionResponse) {
	if !r.FaceDetected {
		fmt.Printf("  #%02d no face\n", r.SequenceNumber)
		return
	}
	fmt.Printf("  #%02d %-13s %-8s conf=%.2f ear=%.3f mar=%.3f angle=%.1f\n",
		r.SequenceNumber, r.EventType, r.Severity, r.Confidence, r.EAR, r.MAR, r.HeadAngle)
}

func testHealth() error {
	fmt.Println("\n[TEST] Testing /api/health...")
	body, code, err := get("/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", code)
	}
	fmt.Printf("✓ Health check: %s\n", strings.TrimSpace(string(body)))
	return nil
}

func testREST(sessionID string) error {
	fmt.Println("\n[TEST] Testing /api/detect...")
	for i, lm := range scenario() {
		body, code, err := post("/api/detect", models.LandmarkFrame{
			SessionID:      sessionID,
			Landmarks:      lm,
			Timestamp:      time.Now().UnixMilli(),
			SequenceNumber: int32(i + 1),
		})
		if err != nil {
			return fmt.Errorf("detection request failed: %v", err)
		}
		if code != http.StatusOK {
			return fmt.Errorf("detection failed: status %d, body: %s", code, string(body))
		}
		var result models.DetectionResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		printResult(&result)
	}

	body, code, err := get("/api/sessions/" + sessionID + "/statistics")
	if err != nil || code != http.StatusOK {
		return fmt.Errorf("statistics failed: %d %v", code, err)
	}
	fmt.Printf("✓ Statistics: %s\n", strings.TrimSpace(string(body)))

	if _, code, err = post("/api/sessions/"+sessionID+"/reset", nil); err != nil || code != http.StatusOK {
		return fmt.Errorf("reset failed: %d %v", code, err)
	}
	fmt.Println("✓ Session reset")
	return nil
}

func testGRPCStream(sessionID string) error {
	fmt.Println("\n[TEST] Testing gRPC DetectFatigueStream...")
	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("did not connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := pb.NewFatigueDetectionClient(conn).DetectFatigueStream(ctx)
	if err != nil {
		return err
	}
	frames := scenario()
	go func() {
		for i, lm := range frames {
			if err := stream.Send(&pb.LandmarkFrame{SessionID: sessionID, Landmarks: lm, SequenceNumber: int32(i + 1)}); err != nil {
				return
			}
		}
		stream.CloseSend()
	}()

	for range frames {
		result, err := stream.Recv()
		if err != nil {
			return fmt.Errorf("stream recv: %v", err)
		}
		printResult(result)
	}
	fmt.Println("✓ gRPC stream completed")
	return nil
}

func testWebSocket() error {
	fmt.Println("\n[TEST] Testing /ws...")
	clientID := uuid.NewString()
	url := "ws" + strings.TrimPrefix(*backendURL, "http") + "/ws?clientId=" + clientID + "&apiKey=" + *apiKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var msg struct {
		Type    string                   `json:"type"`
		Payload models.DetectionResponse `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return err
	}
	fmt.Printf("✓ %s as %s\n", msg.Type, clientID)

	for i, lm := range scenario() {
		frame := map[string]interface{}{
			"type":    "FRAME",
			"payload": models.LandmarkFrame{Landmarks: lm, SequenceNumber: int32(i + 1)},
		}
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Type != "DETECTION" {
			return fmt.Errorf("unexpected reply %s", msg.Type)
		}
		printResult(&msg.Payload)
	}
	fmt.Println("✓ WebSocket session completed")
	return nil
}

func main() {
	flag.Parse()

	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("FATIGUE DETECTOR - Backend Testing Client")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("\n[INFO] Make sure the server is running on", *backendURL, "and", *grpcAddr)

	sessionID := "testclient-" + time.Now().Format("20060102150405")

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Health Check", testHealth},
		{"REST detection", func() error { return testREST(sessionID) }},
		{"gRPC stream", func() error { return testGRPCStream(sessionID + "-grpc") }},
		{"WebSocket", testWebSocket},
	}

	for _, test := range tests {
		if err := test.fn(); err != nil {
			log.Printf("❌ %s failed: %v", test.name, err)
			os.Exit(1)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println("=" + strings.Repeat("=", 60))
}
