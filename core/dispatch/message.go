package dispatch

import (
	"bytes"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

const (
	countryCode = "62"

	arrivalText = `Assalamualaikum Bapak/Ibu Wali Murid.

Diinformasikan bahwa siswa:
Nama: *{{.Name}}*
Kelas: {{.Class}}

Telah *HADIR* di sekolah pada pukul {{.Time}} WIB.

Terima kasih.
_Sistem Absensi {{.AppName}}_`
)

var arrivalTmpl = template.Must(template.New("arrival").Parse(arrivalText))

// NormalizePhone keeps digits only and rewrites a leading local 0 to the country code.
func NormalizePhone(phone string) string {
	phone = core.DigitsOnly(phone)
	if strings.HasPrefix(phone, "0") {
		phone = countryCode + phone[1:]
	}
	return phone
}

// MessageRenderer renders the guardian arrival notice.
type MessageRenderer struct {
	AppName  string
	Location *time.Location
}

func (mr MessageRenderer) Arrival(st roster.Student, at time.Time) (string, error) {
	if mr.Location != nil {
		at = at.In(mr.Location)
	}
	appName := mr.AppName
	if appName == "" {
		appName = "SIABDUL"
	}

	var buff bytes.Buffer
	err := arrivalTmpl.Execute(&buff, struct {
		Name, Class, Time, AppName string
	}{st.Name, st.Class, at.Format("15:04"), appName})
	if err != nil {
		return "", errors.Wrap(err, "rendering arrival message")
	}
	return buff.String(), nil
}

// LinkURI builds the messaging app hand-off URI.
func LinkURI(target, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "whatsapp://send?phone=" + url.QueryEscape(target) + "&text=" + text
}
