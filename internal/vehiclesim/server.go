package vehiclesim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"sync"
	"time"
)

// Options tune the UDP front of the simulator.
type Options struct {
	Latency  time.Duration
	DropRate float64 // 0..1, fraction of replies never sent
}

// Server answers Tello SDK datagrams on behalf of a Vehicle.
type Server struct {
	vehicle *Vehicle

	mu       sync.RWMutex
	latency  time.Duration
	dropRate float64

	conn     *net.UDPConn
	replies  chan reply
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type reply struct {
	payload string
	to      *net.UDPAddr
	due     time.Time
}

// NewServer creates a server for vehicle.
func NewServer(vehicle *Vehicle, opts Options) *Server {
	return &Server{
		vehicle:  vehicle,
		latency:  opts.Latency,
		dropRate: opts.DropRate,
		replies:  make(chan reply, 256),
		stopChan: make(chan struct{}),
	}
}

// Listen binds addr and starts serving. Use "127.0.0.1:0" in tests.
func (s *Server) Listen(addr string) error {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.conn = conn

	log.Printf("Tello simulator listening on %s", conn.LocalAddr())

	s.wg.Add(2)
	go s.serve()
	go s.writeReplies()
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// SetDropRate changes the reply drop fraction at runtime.
func (s *Server) SetDropRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropRate = rate
}

// SetLatency changes the reply delay at runtime.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Close stops serving. The vehicle is left running.
func (s *Server) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	buf := make([]byte, 1518)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.stopChan:
				return
			default:
			}
			log.Printf("Simulator read error: %v", err)
			continue
		}

		text := string(buf[:n])
		payload, err := s.vehicle.Execute(context.Background(), text)
		if err != nil {
			log.Printf("Simulator dropped %q: %v", text, err)
			continue
		}

		s.mu.RLock()
		latency, dropRate := s.latency, s.dropRate
		s.mu.RUnlock()

		if dropRate > 0 && rand.Float64() < dropRate {
			continue
		}

		select {
		case s.replies <- reply{payload: payload, to: from, due: time.Now().Add(latency)}:
		case <-s.stopChan:
			return
		}
	}
}

// writeReplies sends replies in command order once each is due.
func (s *Server) writeReplies() {
	defer s.wg.Done()

	for {
		select {
		case r := <-s.replies:
			if wait := time.Until(r.due); wait > 0 {
				select {
				case <-time.After(wait):
				case <-s.stopChan:
					return
				}
			}
			if _, err := s.conn.WriteToUDP([]byte(r.payload), r.to); err != nil {
				select {
				case <-s.stopChan:
					return
				default:
				}
				log.Printf("Simulator write error: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}
