package web

import (
	"fmt"
	"net"

	"github.com/labstack/gommon/color"
)

func banner(version string, addr net.Addr) string {
	local := addr.String()
	if tcp, ok := addr.(*net.TCPAddr); ok && (tcp.IP == nil || tcp.IP.IsUnspecified()) {
		local = fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return fmt.Sprintf(
		`
%s uccookie %s
Open the page below and scan the QR code with the UC app.
------------------------------
Listening on %s
------------------------------
⇨ HTTP server started on %s`,
		color.Cyan("▣"),
		color.Red(version),
		color.Grey(addr.String()),
		color.Green("http://"+local),
	)
}
