package transport

import (
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/util"
)

// channelLabel is the label of the single data channel the offerer creates.
const channelLabel = "data_channel"

// Options configures the engine behind one Transport.
type Options struct {
	Name     string   // endpoint name, used to tag pion's log output
	STUN     []string // ICE server URIs; empty means host candidates only
	Loopback bool     // also gather candidates on loopback interfaces
}

// newAPI builds a pion API whose logging goes through pterm. mDNS is
// disabled so every gathered candidate carries a concrete address.
func newAPI(opts Options) *webrtc.API {
	se := webrtc.SettingEngine{
		LoggerFactory: util.PionLoggerFactory{Endpoint: opts.Name},
	}
	se.SetICEMulticastDNSMode(ice.MulticastDNSModeDisabled)
	if opts.Loopback {
		se.SetIncludeLoopbackCandidate(true)
		se.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	}
	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}

// newPeerConnection creates a PeerConnection configured with the STUN list.
func newPeerConnection(api *webrtc.API, stun []string) (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{}
	if len(stun) > 0 {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: stun},
		}
	}
	return api.NewPeerConnection(config)
}

// newDataChannel creates the ordered, in-band negotiated data channel. The
// answering side learns about it through OnDataChannel.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	return pc.CreateDataChannel(channelLabel, nil)
}
