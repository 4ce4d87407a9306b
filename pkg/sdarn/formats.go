package sdarn

import "github.com/openradar/darnio/pkg/models"

// Single-character tag aliases keep the field tables close to the RST
// documentation they are transcribed from.
const (
	c = models.TypeChar
	h = models.TypeShort
	i = models.TypeInt
	f = models.TypeFloat
	d = models.TypeDouble
	s = models.TypeString
)

// Common radar operating-parameter block shared by iqdat, rawacf and
// fitacf records.
func radarParams() map[string]models.TypeTag {
	return map[string]models.TypeTag{
		"radar.revision.major": c,
		"radar.revision.minor": c,
		"origin.code":          c,
		"origin.time":          s,
		"origin.command":       s,
		"cp":                   h,
		"stid":                 h,
		"time.yr":              h,
		"time.mo":              h,
		"time.dy":              h,
		"time.hr":              h,
		"time.mt":              h,
		"time.sc":              h,
		"time.us":              i,
		"txpow":                h,
		"nave":                 h,
		"atten":                h,
		"lagfr":                h,
		"smsep":                h,
		"ercod":                h,
		"stat.agc":             h,
		"stat.lopwr":           h,
		"noise.search":         f,
		"noise.mean":           f,
		"channel":              h,
		"bmnum":                h,
		"bmazm":                f,
		"scan":                 h,
		"offset":               h,
		"rxrise":               h,
		"intt.sc":              h,
		"intt.us":              i,
		"txpl":                 h,
		"mpinc":                h,
		"mppul":                h,
		"mplgs":                h,
		"nrang":                h,
		"frang":                h,
		"rsep":                 h,
		"xcf":                  h,
		"tfreq":                h,
		"mxpwr":                i,
		"lvmax":                i,
		"combf":                s,
		"ptab":                 h,
		"ltab":                 h,
	}
}

func merge(base map[string]models.TypeTag, extra map[string]models.TypeTag) map[string]models.TypeTag {
	for name, tag := range extra {
		base[name] = tag
	}
	return base
}

// Iqdat is the raw voltage sample format.
var Iqdat = &Format{
	Name: "iqdat",
	Groups: []FieldGroup{
		{Name: "types", Types: merge(radarParams(), map[string]models.TypeTag{
			"iqdata.revision.major": i,
			"iqdata.revision.minor": i,
			"seqnum":                i,
			"chnnum":                i,
			"smpnum":                i,
			"skpnum":                i,
			"tsc":                   i,
			"tus":                   i,
			"tatten":                h,
			"tnoise":                f,
			"toff":                  i,
			"tsze":                  i,
			"data":                  h,
		})},
	},
}

// Rawacf is the autocorrelation-function product. The correlation,
// digitizing, fittex and cross-correlation groups appear only when the
// corresponding processing option produced them.
var Rawacf = &Format{
	Name: "rawacf",
	Groups: []FieldGroup{
		{Name: "types", Types: merge(radarParams(), map[string]models.TypeTag{
			"rawacf.revision.major": i,
			"rawacf.revision.minor": i,
			"thr":                   f,
			"slist":                 h,
			"pwr0":                  f,
		})},
		{Name: "correlation", Types: map[string]models.TypeTag{"acfd": f}},
		{Name: "digitizing", Types: map[string]models.TypeTag{"ifmode": h}},
		{Name: "fittex", Types: map[string]models.TypeTag{"mplgexs": h}},
		{Name: "cross_correlation", Types: map[string]models.TypeTag{"xcfd": f}},
	},
}

// Fitacf is the fitted product. The fitted and elevation groups exist
// only when the fit produced usable results.
var Fitacf = &Format{
	Name: "fitacf",
	Groups: []FieldGroup{
		{Name: "types", Types: merge(radarParams(), map[string]models.TypeTag{
			"fitacf.revision.major": i,
			"fitacf.revision.minor": i,
			"noise.sky":             f,
			"noise.lag0":            f,
			"noise.vel":             f,
			"pwr0":                  f,
		})},
		{Name: "extra", Types: map[string]models.TypeTag{
			"ifmode":  h,
			"mplgexs": h,
		}},
		{Name: "fitted", Types: map[string]models.TypeTag{
			"slist":  h,
			"nlag":   h,
			"qflg":   c,
			"gflg":   c,
			"p_l":    f,
			"p_l_e":  f,
			"p_s":    f,
			"p_s_e":  f,
			"v":      f,
			"v_e":    f,
			"w_l":    f,
			"w_l_e":  f,
			"w_s":    f,
			"w_s_e":  f,
			"sd_l":   f,
			"sd_s":   f,
			"sd_phi": f,
		}},
		{Name: "elevation", Types: map[string]models.TypeTag{
			"x_qflg":   c,
			"x_gflg":   c,
			"x_p_l":    f,
			"x_p_l_e":  f,
			"x_p_s":    f,
			"x_p_s_e":  f,
			"x_v":      f,
			"x_v_e":    f,
			"x_w_l":    f,
			"x_w_l_e":  f,
			"x_w_s":    f,
			"x_w_s_e":  f,
			"phi0":     f,
			"phi0_e":   f,
			"elv":      f,
			"elv_low":  f,
			"elv_high": f,
			"x_sd_l":   f,
			"x_sd_s":   f,
			"x_sd_phi": f,
		}},
	},
}

// gridCore is shared between grid files and the per-radar section of
// map files.
func gridCore() map[string]models.TypeTag {
	return map[string]models.TypeTag{
		"start.year":     h,
		"start.month":    h,
		"start.day":      h,
		"start.hour":     h,
		"start.minute":   h,
		"start.second":   d,
		"end.year":       h,
		"end.month":      h,
		"end.day":        h,
		"end.hour":       h,
		"end.minute":     h,
		"end.second":     d,
		"stid":           h,
		"channel":        h,
		"nvec":           h,
		"freq":           f,
		"major.revision": h,
		"minor.revision": h,
		"program.id":     h,
		"noise.mean":     f,
		"noise.sd":       f,
		"gsct":           h,
		"v.min":          f,
		"v.max":          f,
		"p.min":          f,
		"p.max":          f,
		"w.min":          f,
		"w.max":          f,
		"ve.min":         f,
		"ve.max":         f,
	}
}

// Grid is the gridded velocity format.
var Grid = &Format{
	Name: "grid",
	Groups: []FieldGroup{
		{Name: "types", Types: gridCore()},
		{Name: "fitted", Types: map[string]models.TypeTag{
			"vector.mlat":       f,
			"vector.mlon":       f,
			"vector.kvect":      f,
			"vector.stid":       h,
			"vector.channel":    h,
			"vector.index":      i,
			"vector.vel.median": f,
			"vector.vel.sd":     f,
		}},
		{Name: "extra", Types: map[string]models.TypeTag{
			"vector.pwr.median": f,
			"vector.pwr.sd":     f,
			"vector.wdt.median": f,
			"vector.wdt.sd":     f,
		}},
	},
}

// Map is the convection-map format.
var Map = &Format{
	Name: "map",
	Groups: []FieldGroup{
		{Name: "types", Types: merge(gridCore(), map[string]models.TypeTag{
			"map.major.revision": h,
			"map.minor.revision": h,
			"doping.level":       h,
			"model.wt":           h,
			"error.wt":           h,
			"IMF.flag":           h,
			"IMF.delay":          h,
			"IMF.Bx":             d,
			"IMF.By":             d,
			"IMF.Bz":             d,
			"IMF.Vx":             d,
			"IMF.tilt":           d,
			"IMF.Kp":             d,
			"hemisphere":         h,
			"noigrf":             h,
			"fit.order":          h,
			"latmin":             f,
			"chi.sqr":            d,
			"chi.sqr.dat":        d,
			"rms.err":            d,
			"lon.shft":           f,
			"lat.shft":           f,
			"mlt.start":          d,
			"mlt.end":            d,
			"mlt.av":             d,
			"pot.drop":           d,
			"pot.drop.err":       d,
			"pot.max":            d,
			"pot.max.err":        d,
			"pot.min":            d,
			"pot.min.err":        d,
			"vector.mlat":        f,
			"vector.mlon":        f,
			"vector.kvect":       f,
			"vector.stid":        h,
			"vector.channel":     h,
			"vector.index":       i,
			"vector.vel.median":  f,
			"vector.vel.sd":      f,
		})},
		{Name: "hmb", Types: map[string]models.TypeTag{
			"model.mlat":       f,
			"model.mlon":       f,
			"model.kvect":      f,
			"model.vel.median": f,
			"boundary.mlat":    f,
			"boundary.mlon":    f,
		}},
		{Name: "model", Types: map[string]models.TypeTag{
			"model.angle": s,
			"model.level": s,
			"model.tilt":  s,
			"model.name":  s,
		}},
		{Name: "fit", Types: map[string]models.TypeTag{
			"source": s,
			"N":      d,
			"N+1":    d,
			"N+2":    d,
			"N+3":    d,
		}},
		{Name: "extra", Types: map[string]models.TypeTag{
			"vector.pwr.median": f,
			"vector.pwr.sd":     f,
			"vector.wdt.median": f,
			"vector.wdt.sd":     f,
		}},
	},
}

// Formats maps a file-type name to its format.
var Formats = map[string]*Format{
	"iqdat":  Iqdat,
	"rawacf": Rawacf,
	"fitacf": Fitacf,
	"grid":   Grid,
	"map":    Map,
}
