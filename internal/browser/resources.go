package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps config names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"image":       proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"font":        proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"stylesheet":  proto.NetworkResourceTypeStylesheet,
}

// blockSet resolves config names into the set of CDP types to fail.
// Unknown names are taken as raw CDP type names.
func blockSet(names []string) map[proto.NetworkResourceType]bool {
	set := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if t, ok := resourceAliases[n]; ok {
			set[t] = true
			continue
		}
		for _, t := range []proto.NetworkResourceType{
			proto.NetworkResourceTypeXHR, proto.NetworkResourceTypeFetch,
			proto.NetworkResourceTypeScript, proto.NetworkResourceTypeWebSocket,
			proto.NetworkResourceTypeOther,
		} {
			if strings.EqualFold(string(t), n) {
				set[t] = true
			}
		}
	}
	return set
}

// applyResourceBlocking fails requests of the configured types before they
// leave the browser. Documents and scripts pass unless named explicitly.
func applyResourceBlocking(page *rod.Page, names []string) error {
	set := blockSet(names)
	if len(set) == 0 {
		return nil
	}
	router := page.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		if set[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return err
	}
	go router.Run()
	return nil
}
