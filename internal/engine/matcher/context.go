package matcher

// resolve fills in ctx's lazily computed eTLD+1/third-party fields the
// first time it's needed; safe to call repeatedly, only the first call
// does any work.
func (m *Matcher) resolve(ctx *RequestContext) {
	if ctx.resolved {
		return
	}
	ctx.requestETLD1 = m.psl.Resolve(ctx.RequestHost)
	if ctx.SiteHost == "" {
		ctx.siteETLD1 = ctx.requestETLD1
		ctx.thirdParty = false
	} else {
		ctx.siteETLD1 = m.psl.Resolve(ctx.SiteHost)
		ctx.thirdParty = ctx.siteETLD1 != ctx.requestETLD1
	}
	ctx.resolved = true
}

// effectiveSiteHost is the host domain= constraints are matched against:
// the initiator's host for subresource requests, or the request's own
// host when SiteHost is empty (a top-level navigation, or a cosmetic/
// response-header call describing the page itself).
func (ctx *RequestContext) effectiveSiteHost() string {
	if ctx.SiteHost != "" {
		return ctx.SiteHost
	}
	return ctx.RequestHost
}
