// Package report renders the human-readable diagnostic output.
package report

import (
	"fmt"
	"io"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
)

// Reporter writes line-oriented text. It is not safe for concurrent use.
type Reporter struct {
	w io.Writer
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Printf writes one line.
func (r *Reporter) Printf(msg string, args ...any) {
	fmt.Fprintf(r.w, msg+"\n", args...)
}

// Blank writes an empty line.
func (r *Reporter) Blank() {
	fmt.Fprintln(r.w)
}

// Chapter writes a banner separating the phases of a run.
func (r *Reporter) Chapter(name string) {
	r.Blank()
	r.Printf("=======================================")
	r.Printf("============ %s", name)
	r.Printf("=======================================")
	r.Blank()
}

// MixerInfo writes the identity block of the num-th mixer.
func (r *Reporter) MixerInfo(num int, info mixer.Info) {
	r.Printf("====== MIXER INFO num: %02d ======", num)
	r.Printf("descr: <%s>", info.Description)
	r.Printf("name: <%s>", info.Name)
	r.Printf("vend: <%s>", info.Vendor)
	r.Printf("ver: <%s>", info.Version)
}

// LineSummary writes the channel limits of a mixer's lines.
func (r *Reporter) LineSummary(info mixer.Info) {
	r.Printf("srcLines max channels: %d", info.MaxPlaybackChannels)
	r.Printf("dstLines max channels: %d", info.MaxCaptureChannels)
}

// Probe writes one format test result. Capture lines are reported as dst,
// playback lines as src.
func (r *Reporter) Probe(captureOK, playbackOK bool, f format.Format) {
	r.Printf("dst %s src %s format: %v", status(captureOK), status(playbackOK), f)
}

// Transfer writes one loopback transfer with the leading bytes of the block.
func (r *Reporter) Transfer(n int, slice []byte) {
	r.Printf("read and written: %d slice: %v", n, slice)
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "BAD"
}
