// Command rtcgated runs a standalone WebRTC data-channel endpoint:
// it serves the signalling façade over HTTP and terminates ICE, DTLS,
// and SCTP for every session it negotiates.
package main

import (
	"encoding/pem"
	"flag"
	"net/http"
	"os"

	"github.com/pion/logging"

	"github.com/loonwerks/rtcgate"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "address to serve the signalling HTTP API on")
		certPath   = flag.String("cert", "", "path to a PEM-encoded certificate")
		keyPath    = flag.String("key", "", "path to a PEM-encoded private key")
		stunServer = flag.String("stun-server", "", "public STUN server used for srflx discovery (default stun.l.google.com:19302)")
	)
	flag.Parse()

	logFactory := logging.NewDefaultLoggerFactory()
	log := logFactory.NewLogger("rtcgated")

	if *certPath == "" || *keyPath == "" {
		log.Errorf("both -cert and -key are required")
		os.Exit(1)
	}

	certPEM, err := os.ReadFile(*certPath)
	if err != nil {
		log.Errorf("read certificate: %v", err)
		os.Exit(1)
	}
	keyPEM, err := os.ReadFile(*keyPath)
	if err != nil {
		log.Errorf("read private key: %v", err)
		os.Exit(1)
	}

	certBlock, _ := pem.Decode(certPEM)
	keyBlock, _ := pem.Decode(keyPEM)
	if certBlock == nil || keyBlock == nil {
		log.Errorf("cert or key file is not valid PEM")
		os.Exit(1)
	}

	endpoint, err := rtcgate.NewEndpoint(rtcgate.EndpointConfig{
		CertificateDER: certBlock.Bytes,
		PrivateKeyDER:  keyBlock.Bytes,
		STUNServer:     *stunServer,
		LoggerFactory:  logFactory,
		OnDataChannel: func(session *rtcgate.Session, channel *rtcgate.DataChannel) {
			log.Infof("session %s opened a data channel", session.LocalUfrag())
		},
	})
	if err != nil {
		log.Errorf("construct endpoint: %v", err)
		os.Exit(1)
	}

	if err := endpoint.Start(); err != nil {
		log.Errorf("start endpoint: %v", err)
		os.Exit(1)
	}
	log.Infof("endpoint ready: internal=%s public=%s", endpoint.InternalIP(), endpoint.PublicIP())

	facade := rtcgate.NewFacade(endpoint)
	log.Infof("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, facade.Router()); err != nil {
		log.Errorf("serve: %v", err)
		os.Exit(1)
	}
}
