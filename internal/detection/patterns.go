package detection

import "regexp"

// headlessUATokens identify automation builds in navigator.userAgent.
var headlessUATokens = []string{"HeadlessChrome", "Headless"}

// seleniumMarkers are globals and document properties injected by legacy
// Selenium drivers and Selenium IDE.
var seleniumMarkers = []string{
	"__webdriver_evaluate",
	"__selenium_evaluate",
	"__webdriver_script_function",
	"__webdriver_script_func",
	"__webdriver_script_fn",
	"__fxdriver_evaluate",
	"__driver_unwrapped",
	"__webdriver_unwrapped",
	"__driver_evaluate",
	"__selenium_unwrapped",
	"__fxdriver_unwrapped",
	"_Selenium_IDE_Recorder",
	"_selenium",
	"callSelenium",
	"_WEBDRIVER_ELEM_CACHE",
}

// seleniumDocumentSubstrings are matched against every document property name.
var seleniumDocumentSubstrings = []string{"webdriver", "selenium", "fxdriver", "$cdc_", "$wdc_"}

var phantomGlobals = []string{"_phantom", "callPhantom", "__phantomas"}

var domAutomationGlobals = []string{"domAutomation", "domAutomationController"}

// testRunnerGlobals are injected by Cypress into the application window.
var testRunnerGlobals = []string{"Cypress", "__cypress", "__Cypress__"}

// protocolMarkerGlobals are left behind by Playwright.
var protocolMarkerGlobals = []string{"__playwright", "__pwInitScripts", "__playwright__binding__"}

// driverPropertyPrefix matches ChromeDriver and similar injected keys, e.g.
// $cdc_asdjflasutopfhvcZLmcfl_ or cdc_adoQpoasnfa76pfcZLmcfl_Array.
var driverPropertyPrefix = regexp.MustCompile(`^\$?(cdc|wdc)_[A-Za-z0-9]{6,}`)

// cdpArtifactGlobals are session artifacts of DevTools-protocol drivers.
var cdpArtifactGlobals = []string{
	"$chrome_asyncScriptInfo",
	"__$webdriverAsyncExecutor",
	"__webdriverFunc",
	"__lastWatirAlert",
	"__lastWatirConfirm",
	"__lastWatirPrompt",
}

// driverExecutables appear in stacks thrown from driver-evaluated code.
var driverExecutables = []string{"chromedriver", "geckodriver", "msedgedriver", "operadriver", "safaridriver"}

// driverClientLibraries are path segments of WebDriver and CDP client
// libraries. Bare product names would also match page URLs such as
// playwright.dev, so only package paths and evaluation-script markers count.
var driverClientLibraries = []string{
	"selenium-webdriver",
	"webdriverio",
	"__puppeteer_evaluation_script__",
	"pptr:",
	"playwright-core",
	"/playwright/",
	"__playwright_evaluation_script__",
	"/nightwatch/",
}

var driverInjectionName = regexp.MustCompile(`\$?(cdc|wdc)_[A-Za-z0-9]{6,}|__(webdriver|selenium|fxdriver|driver)_[a-z_]+`)

// stackHookTooling names automation code inside an overridden stack hook.
var stackHookTooling = []string{"puppeteer", "playwright", "selenium", "webdriver", "pptr:"}

// automationBrands are client-hint brands shipped by headless builds.
var automationBrands = []string{"HeadlessChrome", "Headless", "Chrome for Testing", "Playwright"}

// libraryGlobals are signature globals of headless automation libraries.
var libraryGlobals = map[string][]string{
	"Puppeteer": {"__puppeteer__", "puppeteer", "__puppeteer_utility_world__"},
	"Nightmare": {"__nightmare", "nightmare"},
}

// libraryOrder fixes iteration order over libraryGlobals.
var libraryOrder = []string{"Puppeteer", "Nightmare"}

// softwareRenderers matches GPU-less rasterisers reported by WebGL.
var softwareRenderers = regexp.MustCompile(`(?i)swiftshader|llvmpipe|softpipe|software rasterizer|mesa offscreen|microsoft basic render|google angle.*\(subzero\)`)

// rewrittenGetter matches accessor bodies that unconditionally return a falsy value.
var rewrittenGetter = regexp.MustCompile(`(?s)(return\s*(false|undefined|void 0|!1|null)\b|=>\s*(false|undefined|void 0|!1|null)\b)`)

// minCanvasDataLength is the shortest data URL a rendered test canvas can
// serialize to on a real rasteriser.
const minCanvasDataLength = 1000
