package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

const snapshotPollInterval = 2 * time.Second

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.AnalysisSnapshotRecord, error)
}

// Server exposes HTTP endpoints serving the HTML dashboard and an SSE
// stream of analysis snapshots.
type Server struct {
	Addr  string
	Store snapshotReader
}

// NewServer creates a new web server instance.
func NewServer(addr string, store snapshotReader) *Server {
	return &Server{Addr: addr, Store: store}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/snapshots/stream", s.handleSnapshotStream)
	mux.HandleFunc("/snapshots/latest", s.handleLatestSnapshot)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}

	records, err := s.Store.SnapshotsAfter(0)
	if err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("latest snapshot load: %v", err)
		return
	}
	if len(records) == 0 {
		http.Error(w, "no snapshots yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records[len(records)-1].Snapshot); err != nil {
		log.Printf("latest snapshot encode: %v", err)
	}
}

func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.Store.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: snapshot\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("snapshot stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				log.Printf("snapshot stream poll err: %v", err)
			}
		}
	}
}

// Single-instrument dashboard fed by the snapshot SSE stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>marketprofile</title>
  <style>
    body {
      margin:0;
      padding:2rem;
      background:#ffffff;
      color:#111111;
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    h1 { font-size:1rem; text-transform:uppercase; letter-spacing:.2em; }
    #status {
      display:inline-block;
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid #111;
      padding:.4rem .9rem;
      margin-bottom:1.5rem;
    }
    .grid {
      display:grid;
      grid-template-columns:repeat(auto-fit, minmax(280px, 1fr));
      gap:1.5rem;
    }
    .card {
      border:3px solid #111;
      padding:1.2rem;
      box-shadow:8px 8px 0 rgba(0,0,0,.15);
    }
    .card h2 {
      margin:0 0 .8rem 0;
      font-size:.7rem;
      text-transform:uppercase;
      letter-spacing:.15em;
      border-bottom:2px solid #111;
      padding-bottom:.6rem;
    }
    table { width:100%; border-collapse:collapse; font-size:.7rem; }
    td { padding:.25rem 0; }
    td:last-child { text-align:right; font-weight:700; }
  </style>
</head>
<body>
  <h1>marketprofile</h1>
  <div id="status">Connecting…</div>
  <div class="grid">
    <div class="card"><h2>Session profile</h2><table id="session"></table></div>
    <div class="card"><h2>Rolling profile</h2><table id="rolling"></table></div>
    <div class="card"><h2>Order flow</h2><table id="delta"></table></div>
    <div class="card"><h2>Composite</h2><table id="composite"></table></div>
    <div class="card"><h2>Relative</h2><table id="relative"></table></div>
  </div>
<script>
const statusEl = document.getElementById('status');
const fmt = (v) => (typeof v === 'number' ? v.toFixed(2) : (v || '-'));

function renderRows(el, rows){
  el.innerHTML = rows.map(([k, v]) => '<tr><td>' + k + '</td><td>' + fmt(v) + '</td></tr>').join('');
}

function renderProfile(el, p){
  renderRows(el, [
    ['POC', p.POC], ['VAH', p.VAH], ['VAL', p.VAL], ['VWAP', p.VWAP],
    ['SD1 upper', p.SD1Upper], ['SD1 lower', p.SD1Lower],
    ['HVN buy', p.HVNBuyCount], ['HVN sell', p.HVNSellCount]
  ]);
}

function handle(snap){
  statusEl.textContent = snap.symbol + ' @ ' + new Date(snap.ts).toLocaleTimeString([], { hour12:false });
  renderProfile(document.getElementById('session'), snap.session_profile);
  renderProfile(document.getElementById('rolling'), snap.rolling_profile);
  renderRows(document.getElementById('delta'), [
    ['Session CD', snap.session_delta.bar.CumulativeDeltaClose],
    ['Rolling CD', snap.rolling_delta.bar.CumulativeDeltaClose],
    ['Bar delta', snap.session_delta.bar.BarDelta],
    ['CD momentum', snap.session_delta.momentum.Smooth],
    ['Bias', snap.session_delta.momentum.Bias]
  ]);
  renderRows(document.getElementById('composite'), [
    ['POC 3D', snap.composite.Composite3D.POC],
    ['POC 5D', snap.composite.Composite5D.POC],
    ['VAH 5D', snap.composite.Composite5D.VAH],
    ['VAL 5D', snap.composite.Composite5D.VAL],
    ['ADR 1D', snap.composite.ADR1D],
    ['Control', snap.composite.Control],
    ['Migration', snap.composite.Migration]
  ]);
  renderRows(document.getElementById('relative'), [
    ['Rel HVN buy', snap.session_relative.rel_hvn_buy],
    ['Rel HVN sell', snap.session_relative.rel_hvn_sell],
    ['Rel VA width', snap.session_relative.rel_value_width],
    ['Cum HVN buy', snap.session_relative.cum_hvn_buy],
    ['Cum HVN sell', snap.session_relative.cum_hvn_sell]
  ]);
}

function connect(){
  const source = new EventSource('/snapshots/stream');
  source.addEventListener('snapshot', (event) => {
    try{ handle(JSON.parse(event.data)); }catch(err){ console.error('payload parse', err); }
  });
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(connect, 2000);
  });
}
connect();
</script>
</body>
</html>`
