package catalog

import "github.com/pingmyweb/pingd/internal/ping"

// Keys holds per-deployment API keys substituted into targets that need one.
type Keys struct {
	IndexNow string
	Naver    string
}

// Default returns the production target set: sixteen services across the
// five categories.
func Default(keys Keys) (*Catalog, error) {
	return New(defaultTargets(keys))
}

func defaultTargets(keys Keys) []ping.PingTarget {
	return []ping.PingTarget{
		// Search engines, open to every tier.
		{
			Key: "google", Name: "Google",
			Category: ping.CategorySearchEngines,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://www.google.com/ping",
			Params:   map[string]string{"sitemap": "{url}"},
			MinTier:  ping.TierFree,
		},
		{
			Key: "bing", Name: "Bing",
			Category: ping.CategorySearchEngines,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://www.bing.com/ping",
			Params:   map[string]string{"sitemap": "{url}"},
			MinTier:  ping.TierFree,
		},
		{
			Key: "yandex", Name: "Yandex",
			Category: ping.CategorySearchEngines,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://webmaster.yandex.com/ping",
			Params:   map[string]string{"url": "{url}"},
			MinTier:  ping.TierFree,
		},
		{
			Key: "indexnow", Name: "IndexNow",
			Category: ping.CategorySearchEngines,
			Protocol: ping.ProtocolPostJSON,
			Endpoint: "https://api.indexnow.org/indexnow",
			Params:   map[string]string{"url": "{url}", "key": keys.IndexNow},
			MinTier:  ping.TierFree,
		},

		// Content discovery, Pro and above.
		{
			Key: "feedly", Name: "Feedly",
			Category: ping.CategoryContentDiscovery,
			Protocol: ping.ProtocolPostJSON,
			Endpoint: "https://cloud.feedly.com/v3/notifications",
			Params:   map[string]string{"feedId": "{rssUrl}"},
			MinTier:  ping.TierPro,
		},
		{
			Key: "superfeedr", Name: "Superfeedr",
			Category: ping.CategoryContentDiscovery,
			Protocol: ping.ProtocolPostForm,
			Endpoint: "https://push.superfeedr.com/",
			Params:   map[string]string{"hub.mode": "publish", "hub.url": "{url}"},
			MinTier:  ping.TierPro,
		},
		{
			Key: "blogarama", Name: "Blogarama",
			Category: ping.CategoryContentDiscovery,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://www.blogarama.com/ping-blogarama/",
			Params:   map[string]string{"blog_url": "{url}"},
			MinTier:  ping.TierPro,
		},
		{
			Key: "feedburner", Name: "FeedBurner",
			Category: ping.CategoryContentDiscovery,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://feedburner.google.com/fb/a/ping",
			Params:   map[string]string{"url": "{url}"},
			MinTier:  ping.TierPro,
		},

		// XML-RPC aggregators, Pro and above.
		{
			Key: "pingomatic", Name: "Pingomatic",
			Category:     ping.CategoryAggregators,
			Protocol:     ping.ProtocolXMLRPC,
			Endpoint:     "http://rpc.pingomatic.com/",
			XMLRPCMethod: "weblogUpdates.extendedPing",
			MinTier:      ping.TierPro,
		},
		{
			Key: "twingly", Name: "Twingly",
			Category:     ping.CategoryAggregators,
			Protocol:     ping.ProtocolXMLRPC,
			Endpoint:     "http://rpc.twingly.com/",
			XMLRPCMethod: "weblogUpdates.ping",
			MinTier:      ping.TierPro,
		},
		{
			Key: "weblogupdates", Name: "WeblogUpdates",
			Category:     ping.CategoryAggregators,
			Protocol:     ping.ProtocolXMLRPC,
			Endpoint:     "http://rpc.weblogs.com/RPC2",
			XMLRPCMethod: "weblogUpdates.ping",
			MinTier:      ping.TierPro,
		},

		// Regional engines, Enterprise only.
		{
			Key: "baidu", Name: "Baidu (China)",
			Category: ping.CategoryRegionalEngines,
			Protocol: ping.ProtocolPostJSON,
			Endpoint: "https://zhanzhang.baidu.com/linksubmit/url",
			Params:   map[string]string{"url": "{url}"},
			MinTier:  ping.TierEnterprise,
		},
		{
			Key: "naver", Name: "Naver (Korea)",
			Category: ping.CategoryRegionalEngines,
			Protocol: ping.ProtocolPostJSON,
			Endpoint: "https://searchadvisor.naver.com/indexnow",
			Params:   map[string]string{"url": "{url}", "key": keys.Naver},
			MinTier:  ping.TierEnterprise,
		},
		{
			Key: "seznam", Name: "Seznam (Czech Republic)",
			Category: ping.CategoryRegionalEngines,
			Protocol: ping.ProtocolGet,
			Endpoint: "https://search.seznam.cz/ping",
			Params:   map[string]string{"url": "{url}"},
			MinTier:  ping.TierEnterprise,
		},

		// WebSub hubs, Enterprise only.
		{
			Key: "google_pubsubhubbub", Name: "Google PubSubHubbub",
			Category: ping.CategoryWebSub,
			Protocol: ping.ProtocolPostForm,
			Endpoint: "https://pubsubhubbub.appspot.com/",
			Params:   map[string]string{"hub.mode": "publish", "hub.url": "{url}"},
			MinTier:  ping.TierEnterprise,
		},
		{
			Key: "websub_rocks", Name: "WebSub.rocks",
			Category: ping.CategoryWebSub,
			Protocol: ping.ProtocolPostForm,
			Endpoint: "https://websub.rocks/hub",
			Params:   map[string]string{"hub.mode": "publish", "hub.url": "{url}"},
			MinTier:  ping.TierEnterprise,
		},
	}
}
