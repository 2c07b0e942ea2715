package proxyfinder

// harvestAgent goes on every list fetch; some raw hosts refuse the Go
// default agent outright.
const harvestAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// verifyAgent is the full desktop fingerprint used for probe requests, so
// a proxy that discriminates on the agent is caught here and not during a
// scrape run.
const verifyAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// textSources are raw ip:port lists, one per line. The source name encodes
// the scheme to apply when a line carries none.
var textSources = map[string]string{
	"TheSpeedX":            "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
	"clarketm":             "https://raw.githubusercontent.com/clarketm/proxy-list/master/proxy-list-raw.txt",
	"jetkai_http":          "https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-http.txt",
	"jetkai_https":         "https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-https.txt",
	"jetkai_socks4":        "https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-socks4.txt",
	"jetkai_socks5":        "https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-socks5.txt",
	"monosans_http":        "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt",
	"monosans_socks4":      "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/socks4.txt",
	"monosans_socks5":      "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/socks5.txt",
	"ErcinDedeoglu_http":   "https://raw.githubusercontent.com/ErcinDedeoglu/proxies/main/proxies/http.txt",
	"ErcinDedeoglu_https":  "https://raw.githubusercontent.com/ErcinDedeoglu/proxies/main/proxies/https.txt",
	"ErcinDedeoglu_socks4": "https://raw.githubusercontent.com/ErcinDedeoglu/proxies/main/proxies/socks4.txt",
	"ErcinDedeoglu_socks5": "https://raw.githubusercontent.com/ErcinDedeoglu/proxies/main/proxies/socks5.txt",
	"vakhov_http":          "https://vakhov.github.io/fresh-proxy-list/http.txt",
	"vakhov_https":         "https://vakhov.github.io/fresh-proxy-list/https.txt",
	"vakhov_socks4":        "https://vakhov.github.io/fresh-proxy-list/socks4.txt",
	"vakhov_socks5":        "https://vakhov.github.io/fresh-proxy-list/socks5.txt",
	"KangProxy":            "https://raw.githubusercontent.com/officialputuid/KangProxy/KangProxy/xResults/Proxies.txt",
	"Proxifly_all":         "https://raw.githubusercontent.com/Proxifly/free-proxy-list/main/proxies/all/data.txt",
	"Proxifly_http":        "https://raw.githubusercontent.com/Proxifly/free-proxy-list/main/proxies/http/data.txt",
}

// apiSources answer with either JSON (geonode shape) or plain text; the
// harvester sniffs which. The record source becomes the API host.
var apiSources = []string{
	"https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all",
	"https://api.proxyscrape.com/v2/?request=displayproxies&protocol=socks5&timeout=10000&country=all",
	"https://www.proxy-list.download/api/v1/get?type=http",
	"https://www.proxy-list.download/api/v1/get?type=https",
	"https://www.proxy-list.download/api/v1/get?type=socks4",
	"https://www.proxy-list.download/api/v1/get?type=socks5",
	"https://proxylist.geonode.com/api/proxy-list?limit=500&page=1&sort_by=lastChecked&sort_type=desc",
}

// htmlSources publish their lists as an HTML table with IP and port in the
// first two columns.
var htmlSources = map[string]string{
	"free_proxy_list": "https://free-proxy-list.net/",
	"sslproxies":      "https://www.sslproxies.org/",
}

// schemeFor derives the scheme a bare ip:port line should get from its
// source name.
func schemeFor(name string) string {
	switch {
	case containsFold(name, "socks5"):
		return "socks5"
	case containsFold(name, "socks4"):
		return "socks4"
	case containsFold(name, "https"):
		return "https"
	default:
		return "http"
	}
}
