package filterlist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
	"github.com/edgecomet/blockengine/internal/engine/psl"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/edgecomet/blockengine/internal/engine/urlscan"
)

// ListSource is one filter list's text plus the numeric list id its rules
// are stamped with.
type ListSource struct {
	ID   uint16
	Text string
}

// Options configures a compile run.
type Options struct {
	Lists []ListSource

	// PublicSuffixRules overrides the bundled default public-suffix
	// dataset used to build the PslSets section, in raw PSL rule-line
	// form (comments and blank lines are accepted, same as psl.ParseRules).
	PublicSuffixRules []string

	// BuildID stamps the snapshot header; the compiler never derives it
	// itself (see SPEC_FULL.md's build-identity note) so repeated
	// compiles of identical input are byte-identical modulo this field.
	BuildID uint32

	// SourceHash is an optional caller-supplied content hash, recorded
	// for cache-busting only; the compiler never consults it.
	SourceHash uint64

	WithCRC32 bool
}

// Compile parses every list in opts.Lists and emits a snapshot byte buffer
// plus run statistics. It never panics on malformed input lines; it
// records and skips them instead.
func Compile(opts Options) ([]byte, Stats, error) {
	var stats Stats
	var netRules []networkRule
	selectorRules := map[Kind][]selectorRule{
		KindCosmetic:       nil,
		KindProcedural:     nil,
		KindScriptlet:      nil,
		KindResponseHeader: nil,
	}

	for _, list := range opts.Lists {
		if stats.ContentHashes == nil {
			stats.ContentHashes = make(map[uint16]uint64, len(opts.Lists))
		}
		stats.ContentHashes[list.ID] = xxhash.Sum64String(list.Text)

		for lineNo, raw := range strings.Split(list.Text, "\n") {
			line := strings.TrimRight(raw, "\r")
			line = strings.TrimSpace(line)
			stats.TotalLines++
			if line == "" {
				continue
			}

			kind := classify(line)
			switch kind {
			case KindComment:
				continue
			case KindResponseHeader, KindScriptlet, KindProcedural, KindCosmetic:
				domains, _, body, isException, ok := splitSelectorRule(line)
				if !ok {
					stats.skip("unrecognized selector rule")
					continue
				}
				sr, reason, ok := compileSelectorBody(kind, domains, body, isException, list.ID, lineNo+1)
				if !ok {
					stats.skip(reason)
					continue
				}
				selectorRules[kind] = append(selectorRules[kind], sr)
				stats.Compiled++
			case KindNetwork:
				nr, reason, ok := compileNetworkRule(line, list.ID, lineNo+1)
				if !ok {
					stats.skip(reason)
					continue
				}
				netRules = append(netRules, nr)
				stats.Compiled++
			}
		}
	}

	netRules = optimizeNetworkRules(netRules, &stats)

	return assembleSnapshot(opts, netRules, selectorRules, &stats)
}

func compileSelectorBody(kind Kind, domains, body string, isException bool, listID uint16, line int) (selectorRule, string, bool) {
	switch kind {
	case KindResponseHeader:
		return compileResponseHeaderRule(domains, body, isException, listID, line)
	case KindScriptlet:
		return compileScriptletRule(domains, body, isException, listID, line)
	case KindProcedural:
		return compileProceduralRule(domains, body, isException, listID, line)
	default:
		return compileCosmeticRule(domains, body, isException, listID, line)
	}
}

// compileNetworkRule parses one non-comment, non-selector source line into
// a networkRule, per SPEC_FULL.md §4.4's network rule parsing and action
// refinement rules.
func compileNetworkRule(line string, listID uint16, sourceLine int) (networkRule, string, bool) {
	isException := strings.HasPrefix(line, "@@")
	body := line
	if isException {
		body = body[2:]
	}

	if host, ok := hostsFileHost(body); ok {
		return networkRule{
			Action:      snapshot.ActionBlock,
			HostLiteral: host,
			ListID:      listID,
			SourceLine:  sourceLine,
		}, "", true
	}

	patternPart := body
	optionsPart := ""
	if idx := strings.IndexByte(body, '$'); idx >= 0 {
		patternPart = body[:idx]
		optionsPart = body[idx+1:]
	}

	opts, ok := parseNetworkOptions(optionsPart)
	if !ok {
		return networkRule{}, "unrecognized network option", false
	}

	hostLiteral, pattern, ok := recognizePattern(patternPart)
	if !ok {
		return networkRule{}, "unsupported regex pattern", false
	}

	typeMask := finalizeMask32(opts.typeInclude, opts.typeExclude, opts.sawTypeToken, allTypeMask)
	if maskEmptyAfterFinalize(opts.typeInclude, opts.typeExclude, opts.sawTypeToken, allTypeMask) {
		return networkRule{}, "empty type mask after excludes", false
	}
	partyMask := finalizeMask8(opts.partyInclude, opts.partyExclude, opts.sawPartyToken, allPartyMask)
	if maskEmptyAfterFinalize8(opts.partyInclude, opts.partyExclude, opts.sawPartyToken, allPartyMask) {
		return networkRule{}, "empty party mask after excludes", false
	}
	schemeMask := finalizeMask8(opts.schemeInclude, opts.schemeExclude, opts.sawSchemeToken, allSchemeMask)
	if maskEmptyAfterFinalize8(opts.schemeInclude, opts.schemeExclude, opts.sawSchemeToken, allSchemeMask) {
		return networkRule{}, "empty scheme mask after excludes", false
	}

	action := snapshot.ActionBlock
	if isException {
		action = snapshot.ActionAllow
	}
	flags := opts.Flags

	if opts.HasCsp {
		action = snapshot.ActionCspInject
		if isException {
			flags |= snapshot.FlagCspException
		}
	}
	if opts.HasHeader {
		if isException {
			action = snapshot.ActionHeaderMatchAllow
		} else {
			action = snapshot.ActionHeaderMatchBlock
		}
	}
	if opts.HasRemoveparam && action == snapshot.ActionBlock {
		action = snapshot.ActionRemoveparam
	}
	if opts.HasRedirect {
		if opts.RedirectRule {
			if action == snapshot.ActionBlock {
				action = snapshot.ActionRedirectDirective
			} else if action == snapshot.ActionAllow {
				flags |= snapshot.FlagRedirectRuleException
			}
		} else {
			if action == snapshot.ActionBlock {
				flags |= snapshot.FlagFromRedirectEq
			} else if action == snapshot.ActionAllow {
				opts.RedirectName = ""
			}
		}
	}

	return networkRule{
		Action:           action,
		Flags:            flags,
		TypeMask:         typeMask,
		PartyMask:        partyMask,
		SchemeMask:       schemeMask,
		HostLiteral:      hostLiteral,
		Pattern:          pattern,
		Domain:           opts.Domain,
		RedirectName:     opts.RedirectName,
		RemoveparamKeys:  opts.RemoveparamKeys,
		RemoveparamFlags: removeparamFlagsOf(opts),
		CspDirective:     opts.CspValue,
		HeaderName:       opts.HeaderName,
		HeaderValue:      opts.HeaderValue,
		HeaderNegate:     opts.HeaderNegate,
		ListID:           listID,
		IsBadfilter:      opts.IsBadfilter,
		SourceLine:       sourceLine,
	}, "", true
}

const allPartyMask uint8 = snapshot.PartyFirst | snapshot.PartyThird

// hasRemoveparamOption reports whether nr was compiled from a rule carrying
// a $removeparam option, distinguishing it from a rule that never had one
// (both leave RemoveparamKeys empty and RemoveparamFlags zero).
func hasRemoveparamOption(nr networkRule) bool {
	return len(nr.RemoveparamKeys) > 0 || nr.RemoveparamFlags&snapshot.RemoveparamFlagNegate != 0
}

func removeparamFlagsOf(opts parsedOptions) uint32 {
	if !opts.HasRemoveparam {
		return 0
	}
	if len(opts.RemoveparamKeys) == 0 {
		return snapshot.RemoveparamFlagNegate
	}
	return 0
}

// assembleSnapshot builds every section and emits the final snapshot bytes.
func assembleSnapshot(opts Options, netRules []networkRule, selectorRules map[Kind][]selectorRule, stats *Stats) ([]byte, Stats, error) {
	strPool := &snapshot.StrPoolBuilder{}
	constraintPool := &snapshot.DomainConstraintBuilder{}
	patternBuilder := &snapshot.PatternBuilder{}
	redirectBuilder := &snapshot.RedirectResourcesBuilder{}
	removeparamBuilder := &snapshot.RemoveparamSpecsBuilder{}
	cspBuilder := &snapshot.CspSpecsBuilder{}
	headerBuilder := &snapshot.HeaderSpecsBuilder{}
	rulesBuilder := &snapshot.RulesBuilder{}

	blockDomains := make(map[uint64][]uint32)
	allowDomains := make(map[uint64][]uint32)
	tokenToRules := make(map[uint32]map[uint32]bool)

	// removeparamSpecIDs dedupes specs by (keys, flags): an exception rule
	// with the same key list as an active rule must resolve to the same
	// option id so the matcher's A2 stage can except it by id comparison.
	removeparamSpecIDs := make(map[string]uint32)
	internRemoveparamSpec := func(keys []string, flags uint32) uint32 {
		key := strings.Join(keys, ",") + "|" + strconv.FormatUint(uint64(flags), 10)
		if id, ok := removeparamSpecIDs[key]; ok {
			return id
		}
		id := removeparamBuilder.Add(snapshot.RemoveparamEntry{
			KeysOffset: strPool.Intern(strings.Join(keys, ",")),
			Flags:      flags,
		})
		removeparamSpecIDs[key] = id
		return id
	}

	for _, nr := range netRules {
		constraintOffset := snapshot.NoConstraint
		if !nr.Domain.empty() {
			constraintOffset = constraintPool.Add(hashDomainList(nr.Domain.Include), hashDomainList(nr.Domain.Exclude))
		}

		optionID := snapshot.NoOption
		switch nr.Action {
		case snapshot.ActionRemoveparam:
			optionID = internRemoveparamSpec(nr.RemoveparamKeys, nr.RemoveparamFlags)
		case snapshot.ActionCspInject:
			var flags uint32
			if nr.CspDirective == "" {
				flags = snapshot.CspFlagDisableAll
			}
			optionID = cspBuilder.Add(snapshot.CspEntry{
				DirectiveOffset: strPool.Intern(nr.CspDirective),
				Flags:           flags,
			})
		case snapshot.ActionHeaderMatchBlock, snapshot.ActionHeaderMatchAllow:
			var flags uint32
			if nr.HeaderNegate {
				flags = snapshot.HeaderFlagNegate
			}
			valueOff := snapshot.NoOption
			if nr.HeaderValue != "" {
				valueOff = strPool.Intern(nr.HeaderValue)
			}
			optionID = headerBuilder.Add(snapshot.HeaderEntry{
				NameOffset:  strPool.Intern(nr.HeaderName),
				ValueOffset: valueOff,
				Flags:       flags,
			})
		case snapshot.ActionRedirectDirective:
			// No bundled resource-content table ships with the compiler
			// (see SPEC_FULL.md's option pool note); PathOffset names the
			// same resource string as NameOffset until an operator wires
			// a real redirect-resource bundle through a future Options
			// field. The matcher resolves actual bytes by name regardless.
			optionID = redirectBuilder.Add(snapshot.RedirectEntry{
				NameOffset: strPool.Intern(nr.RedirectName),
				PathOffset: strPool.Intern(nr.RedirectName),
			})
		}
		if nr.Action == snapshot.ActionAllow && hasRemoveparamOption(nr) {
			// A $removeparam exception still needs its key list recorded:
			// the matcher's A2 stage excepts active removeparam rules
			// whose option id matches an exception's, which only works if
			// identical key/flag specs share one id (see
			// internRemoveparamSpec above).
			optionID = internRemoveparamSpec(nr.RemoveparamKeys, nr.RemoveparamFlags)
		}
		if nr.Flags&snapshot.FlagFromRedirectEq != 0 && nr.RedirectName != "" && optionID == snapshot.NoOption {
			optionID = redirectBuilder.Add(snapshot.RedirectEntry{
				NameOffset: strPool.Intern(nr.RedirectName),
				PathOffset: strPool.Intern(nr.RedirectName),
				Flags:      snapshot.RedirectFlagInline,
			})
		}

		patternID := snapshot.NoPattern
		if nr.Pattern != nil {
			program, hostLo, hostHi, flags := compilePattern(*nr.Pattern, strPool)
			patternID = patternBuilder.AddProgram(nr.Pattern.Anchor, flags, hostLo, hostHi, program)
		}

		idx := rulesBuilder.Add(snapshot.RuleRow{
			Action:           nr.Action,
			Flags:            nr.Flags,
			TypeMask:         nr.TypeMask,
			PartyMask:        nr.PartyMask,
			SchemeMask:       nr.SchemeMask,
			PatternID:        patternID,
			ConstraintOffset: constraintOffset,
			OptionID:         optionID,
			Priority:         0,
			ListID:           nr.ListID,
		})

		// Host-anchor rules (bare "||host^" with no further URL structure)
		// carry no Pattern, so they are only ever reachable through the
		// domain-hash sets, never the token postings. That applies
		// regardless of action: a removeparam/csp/header-match rule can be
		// host-anchor just as easily as a block/allow rule. Which bucket a
		// non-block/allow rule lands in doesn't matter downstream, since
		// candidate gathering re-derives the actual action from the rules
		// table rather than trusting which set produced the hit.
		if nr.HostLiteral != "" {
			key := hashutil.HashDomain(nr.HostLiteral).ToU64()
			if nr.Action == snapshot.ActionAllow || nr.Action == snapshot.ActionHeaderMatchAllow {
				allowDomains[key] = append(allowDomains[key], idx)
			} else {
				blockDomains[key] = append(blockDomains[key], idx)
			}
		}

		if nr.Pattern != nil {
			for _, tok := range patternTokens(nr.Pattern.Raw) {
				h := hashutil.HashTokenString(tok)
				if tokenToRules[h] == nil {
					tokenToRules[h] = make(map[uint32]bool)
				}
				tokenToRules[h][idx] = true
			}
		}
	}

	tokenPostings := &snapshot.TokenPostingsBuilder{}
	tokenEntries := make(map[uint32]snapshot.TokenEntry, len(tokenToRules))
	for h, set := range tokenToRules {
		indices := make([]uint32, 0, len(set))
		for idx := range set {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		off := tokenPostings.Add(indices)
		tokenEntries[h] = snapshot.TokenEntry{PostingsOffset: off, RuleCount: uint32(len(indices))}
	}

	for key := range blockDomains {
		sort.Slice(blockDomains[key], func(i, j int) bool { return blockDomains[key][i] < blockDomains[key][j] })
	}
	for key := range allowDomains {
		sort.Slice(allowDomains[key], func(i, j int) bool { return allowDomains[key][i] < allowDomains[key][j] })
	}

	cosmeticPool := buildSelectorPool(selectorRules[KindCosmetic], strPool, constraintPool)
	proceduralPool := buildSelectorPool(selectorRules[KindProcedural], strPool, constraintPool)
	scriptletPool := buildScriptletPool(selectorRules[KindScriptlet], strPool, constraintPool)
	responseHeaderPool := buildSelectorPool(selectorRules[KindResponseHeader], strPool, constraintPool)

	var pslSection []byte
	if len(opts.PublicSuffixRules) > 0 {
		pslSection = psl.BuildSection(psl.ParseRules(opts.PublicSuffixRules))
	} else {
		pslSection = psl.DefaultSection()
	}

	domainSetsSection := snapshot.BuildDomainSets(blockDomains, allowDomains, domainSeedLo, domainSeedHi)
	tokenDictSection := snapshot.BuildTokenDict(tokenEntries, tokenSeedLo)

	b := snapshot.NewBuilder(opts.BuildID, opts.WithCRC32)
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionStrPool, Body: strPool.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionPslSets, Body: pslSection})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionDomainSets, Body: domainSetsSection})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionTokenDict, Body: tokenDictSection})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionTokenPostings, Body: tokenPostings.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionPatternPool, Body: patternBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionRules, Body: rulesBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionDomainConstraintPool, Body: constraintPool.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionRedirectResources, Body: redirectBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionRemoveparamSpecs, Body: removeparamBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionCspSpecs, Body: cspBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionHeaderSpecs, Body: headerBuilder.Build()})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionResponseHeaderRules, Body: responseHeaderPool})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionCosmeticRules, Body: cosmeticPool})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionProceduralRules, Body: proceduralPool})
	b.AddSection(snapshot.SectionData{ID: snapshot.SectionScriptletRules, Body: scriptletPool})

	return b.Build(), *stats, nil
}

const (
	domainSeedLo = 0x9e3779b9
	domainSeedHi = 0x85ebca6b
	tokenSeedLo  = 0x811c9dc5
)

func hashDomainList(domains []string) []uint64 {
	out := make([]uint64, 0, len(domains))
	for _, d := range domains {
		out = append(out, hashutil.HashDomain(d).ToU64())
	}
	return out
}

// patternTokens extracts the same >=3-char ASCII-alphanumeric runs from a
// raw pattern string that urlscan.TokenizeURL extracts from a live URL, so
// a pattern rule's postings entry is reachable by the matcher's token
// lookup of the request URL.
func patternTokens(raw string) []string {
	var out []string
	runStart := -1
	lower := strings.ToLower(raw)
	flushRun := func(end int) {
		if runStart >= 0 && end-runStart >= urlscan.MinTokenLen {
			out = append(out, lower[runStart:end])
		}
		runStart = -1
	}
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		alnum := c >= '0' && c <= '9' || c >= 'a' && c <= 'z'
		if alnum {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flushRun(i)
	}
	flushRun(len(lower))
	return out
}

func buildSelectorPool(rules []selectorRule, strPool *snapshot.StrPoolBuilder, constraintPool *snapshot.DomainConstraintBuilder) []byte {
	b := &snapshot.SelectorPoolBuilder{}
	for _, r := range rules {
		var flags uint32
		if r.IsException {
			flags |= snapshot.SelectorFlagException
		}
		if r.IsGeneric {
			flags |= snapshot.SelectorFlagGeneric
		}
		constraintOffset := snapshot.NoConstraint
		if !r.Domain.empty() {
			constraintOffset = constraintPool.Add(hashDomainList(r.Domain.Include), hashDomainList(r.Domain.Exclude))
		}
		b.Add(snapshot.SelectorEntry{
			TextOffset:       strPool.Intern(r.Text),
			ExtraOffset:      snapshot.NoOption,
			Flags:            flags,
			ConstraintOffset: constraintOffset,
		})
	}
	return b.Build()
}

func buildScriptletPool(rules []selectorRule, strPool *snapshot.StrPoolBuilder, constraintPool *snapshot.DomainConstraintBuilder) []byte {
	b := &snapshot.SelectorPoolBuilder{}
	for _, r := range rules {
		var flags uint32
		if r.IsException {
			flags |= snapshot.SelectorFlagException
		}
		extraOffset := uint32(snapshot.NoOption)
		if len(r.Args) > 0 {
			extraOffset = strPool.Intern(strings.Join(r.Args, "\x00"))
		}
		constraintOffset := snapshot.NoConstraint
		if !r.Domain.empty() {
			constraintOffset = constraintPool.Add(hashDomainList(r.Domain.Include), hashDomainList(r.Domain.Exclude))
		}
		b.Add(snapshot.SelectorEntry{
			TextOffset:       strPool.Intern(r.Text),
			ExtraOffset:      extraOffset,
			Flags:            flags,
			ConstraintOffset: constraintOffset,
		})
	}
	return b.Build()
}
