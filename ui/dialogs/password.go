package dialogs

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

var errWrongPassword = errors.New("senha incorreta")

// ShowPasswordGate asks for the client's password until check accepts it or
// the user cancels. onUnlock runs once on success.
func ShowPasswordGate(clientName string, window fyne.Window, check func(string) bool, onUnlock func()) {
	entry := widget.NewPasswordEntry()
	entry.SetPlaceHolder("Senha")

	items := []*widget.FormItem{widget.NewFormItem("Senha", entry)}
	dlg := dialog.NewForm("Acesso restrito: "+clientName, "Entrar", "Cancelar", items, func(ok bool) {
		if !ok {
			return
		}
		if check(entry.Text) {
			if onUnlock != nil {
				onUnlock()
			}
			return
		}
		errDlg := dialog.NewError(errWrongPassword, window)
		errDlg.SetOnClosed(func() {
			ShowPasswordGate(clientName, window, check, onUnlock)
		})
		errDlg.Show()
	}, window)
	dlg.Resize(fyne.NewSize(360, 160))
	dlg.Show()
	window.Canvas().Focus(entry)
}
