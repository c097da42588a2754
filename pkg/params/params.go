// Package params decodes the connection parameter blobs exchanged with the
// signalling server into pion/webrtc types.
//
// GetParams returns a join payload describing the local ICE credentials,
// DTLS fingerprints and SSRCs. The server answers with a transport blob that
// is handed to Connect unchanged; ParseTransport exposes its content for
// inspection and logging.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrMissingTransport is returned when an answer carries no transport
	// and does not request RTMP.
	ErrMissingTransport = errors.New("params: answer has no transport")

	// ErrMissingCredentials is returned when the ICE ufrag or pwd is empty.
	ErrMissingCredentials = errors.New("params: missing ICE credentials")
)

// Fingerprint is one DTLS certificate fingerprint with the role the peer
// takes in the handshake.
type Fingerprint struct {
	webrtc.DTLSFingerprint
	Role webrtc.DTLSRole
}

// SSRCGroup groups related synchronization sources, e.g. FID or SIM.
type SSRCGroup struct {
	Semantics string
	Sources   []uint32
}

// JoinPayload is the local side of a call as produced by GetParams.
type JoinPayload struct {
	ICE          webrtc.ICEParameters
	Fingerprints []Fingerprint
	SSRC         uint32
	SSRCGroups   []SSRCGroup
}

// Transport is the remote side of a call as passed to Connect.
type Transport struct {
	ICE          webrtc.ICEParameters
	Fingerprints []Fingerprint
	Candidates   []webrtc.ICECandidate
	// RTMP is set when the call only accepts an RTMP stream.
	RTMP bool
}

type rawFingerprint struct {
	Hash        string `json:"hash"`
	Setup       string `json:"setup"`
	Fingerprint string `json:"fingerprint"`
}

type rawSSRCGroup struct {
	Semantics string     `json:"semantics"`
	Sources   []flexUint `json:"sources"`
}

type rawJoinPayload struct {
	Ufrag        string           `json:"ufrag"`
	Pwd          string           `json:"pwd"`
	Fingerprints []rawFingerprint `json:"fingerprints"`
	SSRC         flexUint         `json:"ssrc"`
	SSRCGroups   []rawSSRCGroup   `json:"ssrc-groups"`
}

type rawCandidate struct {
	Foundation string   `json:"foundation"`
	Component  flexUint `json:"component"`
	Protocol   string   `json:"protocol"`
	Priority   flexUint `json:"priority"`
	IP         string   `json:"ip"`
	Port       flexUint `json:"port"`
	Type       string   `json:"type"`
	RelAddr    string   `json:"rel-addr"`
	RelPort    flexUint `json:"rel-port"`
	TCPType    string   `json:"tcptype"`
}

type rawTransport struct {
	Ufrag        string           `json:"ufrag"`
	Pwd          string           `json:"pwd"`
	Fingerprints []rawFingerprint `json:"fingerprints"`
	Candidates   []rawCandidate   `json:"candidates"`
}

type rawAnswer struct {
	Transport *rawTransport `json:"transport"`
	RTMP      bool          `json:"rtmp"`
}

// flexUint accepts both JSON numbers and decimal strings; the signalling
// server sends candidate fields as strings.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned value %s: %w", data, err)
	}
	*f = flexUint(v)
	return nil
}

// ParseJoinPayload decodes the blob returned by GetParams.
func ParseJoinPayload(blob string) (*JoinPayload, error) {
	var raw rawJoinPayload
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("params: decode join payload: %w", err)
	}
	if raw.Ufrag == "" || raw.Pwd == "" {
		return nil, ErrMissingCredentials
	}

	p := &JoinPayload{
		ICE: webrtc.ICEParameters{
			UsernameFragment: raw.Ufrag,
			Password:         raw.Pwd,
		},
		Fingerprints: decodeFingerprints(raw.Fingerprints),
		SSRC:         uint32(raw.SSRC),
	}
	for _, g := range raw.SSRCGroups {
		group := SSRCGroup{Semantics: g.Semantics}
		for _, src := range g.Sources {
			group.Sources = append(group.Sources, uint32(src))
		}
		p.SSRCGroups = append(p.SSRCGroups, group)
	}
	return p, nil
}

// ParseTransport decodes the answer the signalling server returns for a
// join payload. An RTMP-only answer yields a Transport with RTMP set and no
// ICE data.
func ParseTransport(blob string) (*Transport, error) {
	var raw rawAnswer
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("params: decode transport: %w", err)
	}
	if raw.RTMP {
		return &Transport{RTMP: true}, nil
	}
	if raw.Transport == nil {
		return nil, ErrMissingTransport
	}

	rt := raw.Transport
	t := &Transport{
		ICE: webrtc.ICEParameters{
			UsernameFragment: rt.Ufrag,
			Password:         rt.Pwd,
		},
		Fingerprints: decodeFingerprints(rt.Fingerprints),
	}
	for i, c := range rt.Candidates {
		candidate, err := decodeCandidate(c)
		if err != nil {
			return nil, fmt.Errorf("params: candidate %d: %w", i, err)
		}
		t.Candidates = append(t.Candidates, candidate)
	}
	return t, nil
}

func decodeFingerprints(raw []rawFingerprint) []Fingerprint {
	out := make([]Fingerprint, 0, len(raw))
	for _, f := range raw {
		out = append(out, Fingerprint{
			DTLSFingerprint: webrtc.DTLSFingerprint{
				Algorithm: f.Hash,
				Value:     f.Fingerprint,
			},
			Role: SetupRole(f.Setup),
		})
	}
	return out
}

// SetupRole maps an SDP setup attribute to the DTLS role it implies.
func SetupRole(setup string) webrtc.DTLSRole {
	switch strings.ToLower(setup) {
	case "active":
		return webrtc.DTLSRoleClient
	case "passive":
		return webrtc.DTLSRoleServer
	default:
		return webrtc.DTLSRoleAuto
	}
}

func decodeCandidate(c rawCandidate) (webrtc.ICECandidate, error) {
	typ, err := webrtc.NewICECandidateType(c.Type)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	protocol, err := webrtc.NewICEProtocol(c.Protocol)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	if c.Port > 0xFFFF || c.RelPort > 0xFFFF {
		return webrtc.ICECandidate{}, fmt.Errorf("port out of range")
	}
	return webrtc.ICECandidate{
		Foundation:     c.Foundation,
		Priority:       uint32(c.Priority),
		Address:        c.IP,
		Protocol:       protocol,
		Port:           uint16(c.Port),
		Typ:            typ,
		Component:      uint16(c.Component),
		RelatedAddress: c.RelAddr,
		RelatedPort:    uint16(c.RelPort),
		TCPType:        c.TCPType,
	}, nil
}
