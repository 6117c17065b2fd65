package sdp

import (
	"net"
	"strconv"
	"strings"
)

// Parse parses the text of an SDP offer into a structured Offer.
// Unrecognised attribute lines are ignored; malformed or non-IPv4
// candidate lines are skipped, per spec.md §4.7.
func Parse(raw string) (*Offer, error) {
	offer := &Offer{}
	var current *MediaSection

	for _, line := range splitLines(raw) {
		if len(line) < 2 || line[1] != '=' {
			continue
		}
		kind, value := line[0], line[2:]

		switch kind {
		case 'm':
			offer.Media = append(offer.Media, MediaSection{Protocol: mediaProtocol(value)})
			current = &offer.Media[len(offer.Media)-1]
		case 'a':
			parseAttribute(offer, current, value)
		}
	}

	hasDataSection := false
	for _, m := range offer.Media {
		if strings.Contains(strings.ToUpper(m.Protocol), "DTLS/SCTP") {
			hasDataSection = true
			break
		}
	}
	if !hasDataSection {
		return nil, ErrNoDataSection
	}

	return offer, nil
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// mediaProtocol extracts the transport protocol token from an m= line
// body, e.g. "application 9 DTLS/SCTP 5000" -> "DTLS/SCTP".
func mediaProtocol(body string) string {
	fields := strings.Fields(body)
	if len(fields) < 3 {
		return ""
	}
	return fields[2]
}

func parseAttribute(offer *Offer, current *MediaSection, value string) {
	key, rest, _ := strings.Cut(value, ":")

	switch key {
	case "ice-ufrag":
		if current != nil {
			current.ICEUfrag = rest
		}
	case "ice-pwd":
		if current != nil {
			current.ICEPwd = rest
		}
	case "fingerprint":
		fp := parseFingerprint(rest)
		if fp == nil {
			return
		}
		if current != nil {
			current.Fingerprint = fp
		} else {
			offer.Fingerprint = fp
		}
	case "group":
		fields := strings.Fields(rest)
		if len(fields) >= 2 && fields[0] == "BUNDLE" {
			offer.Groups = append(offer.Groups, fields[1:])
		}
	case "candidate":
		if current == nil {
			return
		}
		if c, ok := parseCandidate(rest); ok {
			current.Candidates = append(current.Candidates, c)
		}
	}
}

func parseFingerprint(value string) *Fingerprint {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return nil
	}
	return &Fingerprint{Type: fields[0], Hash: fields[1]}
}

// parseCandidate parses the body of an "a=candidate:" line:
//
//	<foundation> <component> <transport> <priority> <address> <port> typ <type> ...
//
// Only UDP/IPv4 candidates are accepted; anything else is skipped
// silently (returns ok=false), per spec.md §4.7.
func parseCandidate(value string) (Candidate, bool) {
	fields := strings.Fields(value)
	if len(fields) < 8 || fields[6] != "typ" {
		return Candidate{}, false
	}
	if !strings.EqualFold(fields[2], "udp") {
		return Candidate{}, false
	}

	ip := net.ParseIP(fields[4])
	if ip == nil || ip.To4() == nil {
		return Candidate{}, false
	}

	port, err := strconv.Atoi(fields[5])
	if err != nil || port < 1 || port > 65535 {
		return Candidate{}, false
	}

	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Candidate{}, false
	}

	return Candidate{
		IP:       ip.To4(),
		Port:     port,
		Priority: uint32(priority),
		Type:     fields[7],
	}, true
}
