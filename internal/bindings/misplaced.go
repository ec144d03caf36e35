package bindings

const (
	noteLoadUi      = "QtCompat.loadUi(uifile, baseinstance=None) replaces the loader object"
	noteWrap        = "QtCompat.wrapInstance(addr, type=None) infers the type when omitted"
	noteTranslate   = "QtCompat.translate(context, sourceText, disambiguation, n) drops the encoding argument"
	noteMsgHandler  = "QtCompat.qInstallMessageHandler handlers receive (msgType, logContext, msg)"
	appInstance     = "QtWidgets.QApplication.instance()"
	styleOptionView = "QtCompat.QStyleOptionViewItemV4"
)

func to(path string) Relocation { return Relocation{Target: path} }

func note(path, extra string) Relocation { return Relocation{Target: path, Extra: extra} }

// proxyModels moved from QtGui to QtCore in Qt 5.
var proxyModels = []string{
	"QAbstractProxyModel", "QSortFilterProxyModel", "QStringListModel",
	"QItemSelection", "QItemSelectionModel", "QItemSelectionRange",
}

// printSupport moved from QtGui to QtPrintSupport in Qt 5.
var printSupport = []string{
	"QAbstractPrintDialog", "QPageSetupDialog", "QPrintDialog", "QPrintEngine",
	"QPrintPreviewDialog", "QPrintPreviewWidget", "QPrinter", "QPrinterInfo",
}

// misplacedMembers maps, per binding, a member path to its location in the shim.
var misplacedMembers = map[string]map[string]Relocation{
	"PySide2": v2Relocations(map[string]Relocation{
		"QtGui.QStringListModel":  to("QtCore.QStringListModel"),
		"QtCore.Property":         to("QtCore.Property"),
		"QtCore.Signal":           to("QtCore.Signal"),
		"QtCore.Slot":             to("QtCore.Slot"),
		"QtUiTools.QUiLoader":     note("QtCompat.loadUi", noteLoadUi),
		"shiboken2.wrapInstance":  note("QtCompat.wrapInstance", noteWrap),
		"shiboken2.getCppPointer": to("QtCompat.getCppPointer"),
		"shiboken2.isValid":       to("QtCompat.isValid"),
	}),
	"PyQt5": v2Relocations(map[string]Relocation{
		"QtCore.pyqtProperty": to("QtCore.Property"),
		"QtCore.pyqtSignal":   to("QtCore.Signal"),
		"QtCore.pyqtSlot":     to("QtCore.Slot"),
		"uic.loadUi":          note("QtCompat.loadUi", noteLoadUi),
		"sip.wrapinstance":    note("QtCompat.wrapInstance", noteWrap),
		"sip.unwrapinstance":  to("QtCompat.getCppPointer"),
		"sip.isdeleted":       to("QtCompat.isValid"),
	}),
	"PySide": v1Relocations(map[string]Relocation{
		"QtCore.Property":         to("QtCore.Property"),
		"QtCore.Signal":           to("QtCore.Signal"),
		"QtCore.Slot":             to("QtCore.Slot"),
		"QtUiTools.QUiLoader":     note("QtCompat.loadUi", noteLoadUi),
		"shiboken.wrapInstance":   note("QtCompat.wrapInstance", noteWrap),
		"shiboken.unwrapInstance": to("QtCompat.getCppPointer"),
		"shiboken.isValid":        to("QtCompat.isValid"),
	}),
	"PyQt4": v1Relocations(map[string]Relocation{
		"QtCore.pyqtProperty": to("QtCore.Property"),
		"QtCore.pyqtSignal":   to("QtCore.Signal"),
		"QtCore.pyqtSlot":     to("QtCore.Slot"),
		"uic.loadUi":          note("QtCompat.loadUi", noteLoadUi),
		"sip.wrapinstance":    note("QtCompat.wrapInstance", noteWrap),
		"sip.unwrapinstance":  to("QtCompat.getCppPointer"),
		"sip.isdeleted":       to("QtCompat.isValid"),
	}),
}

// v2Relocations adds the entries shared by the Qt 5 bindings.
func v2Relocations(m map[string]Relocation) map[string]Relocation {
	for _, name := range proxyModels {
		m["QtCore."+name] = to("QtCore." + name)
	}
	m["QtWidgets.qApp"] = to(appInstance)
	m["QtCore.QCoreApplication.translate"] = note("QtCompat.translate", noteTranslate)
	m["QtWidgets.QApplication.translate"] = note("QtCompat.translate", noteTranslate)
	m["QtCore.qInstallMessageHandler"] = note("QtCompat.qInstallMessageHandler", noteMsgHandler)
	m["QtWidgets.QStyleOptionViewItem"] = to(styleOptionView)
	return m
}

// v1Relocations adds the entries shared by the Qt 4 bindings.
func v1Relocations(m map[string]Relocation) map[string]Relocation {
	for _, name := range proxyModels {
		m["QtGui."+name] = to("QtCore." + name)
	}
	for _, name := range printSupport {
		m["QtGui."+name] = to("QtPrintSupport." + name)
	}
	m["QtGui.qApp"] = to(appInstance)
	m["QtCore.QCoreApplication.translate"] = note("QtCompat.translate", noteTranslate)
	m["QtGui.QApplication.translate"] = note("QtCompat.translate", noteTranslate)
	m["QtCore.qInstallMsgHandler"] = note("QtCompat.qInstallMessageHandler", noteMsgHandler)
	m["QtGui.QStyleOptionViewItemV4"] = to(styleOptionView)
	return m
}
