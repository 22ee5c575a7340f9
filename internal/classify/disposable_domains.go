package classify

// builtinDisposable is the shipped table of domains known to hand out
// throwaway addresses. Extend it at startup with LoadDomainsFile.
var builtinDisposable = []string{
	"guerrillamail.com", "10minutemail.com", "temp-mail.org", "throwaway.email",
	"mailinator.com", "maildrop.cc", "tempmail.com", "getnada.com", "yopmail.com",
	"trashmail.com", "fakeinbox.com", "sharklasers.com", "guerrillamail.info", "grr.la",
	"guerrillamailblock.com", "pokemail.net", "spam4.me", "tafmail.com",
	"emailondeck.com", "tempr.email", "tempinbox.com", "mohmal.com", "mytemp.email",
	"33mail.com", "dispostable.com", "mintemail.com", "getairmail.com",
	"mail-temporaire.fr", "mailnesia.com", "armyspy.com", "cuvox.de", "dayrep.com",
	"einrot.com", "fleckens.hu", "gustr.com", "jourrapide.com", "rhyta.com",
	"superrito.com", "teleworm.us", "anonbox.net", "binkmail.com", "bobmail.info",
	"boun.cr", "boxformail.in", "br.mintemail.com", "bugmenot.com", "cash-email.com",
	"centermail.com", "chammy.info", "chogmail.com", "choicemail1.com", "cool.fr.nf",
	"correo.blogos.net", "cosmorph.com", "courriel.fr.nf", "courrieltemporaire.com",
	"dacoolest.com", "dandikmail.com", "deadaddress.com", "despam.it", "despammed.com",
	"devnullmail.com", "discardmail.com", "discardmail.de", "disposableaddress.com",
	"disposableemailaddresses.com", "disposableinbox.com", "dispose.it", "dodgeit.com",
	"dodgit.com", "donemail.ru", "dontreg.com", "dotmsg.com", "drdrb.net",
	"dump-email.info", "dumpandjunk.com", "dumpmail.de", "dumpyemail.com", "e4ward.com",
	"email60.com", "emaildienst.de", "emailias.com", "emailinfive.com",
	"emailisvalid.com", "emaillime.com", "emailmiser.com", "emailsensei.com",
	"emailtemporanea.com", "emailtemporanea.net", "emailtemporar.ro",
	"emailtemporario.com.br", "emailthe.net", "emailtmp.com", "emailwarden.com",
	"emailx.at.hm", "emailxfer.com", "emeil.in", "emeil.ir", "emz.net", "enterto.com",
	"ephemail.net", "etranquil.com", "etranquil.net", "etranquil.org", "evopo.com",
	"explodemail.com", "express.net.ua", "eyepaste.com", "fakeinformation.com",
	"fakemail.fr", "fakemailgenerator.com", "fastacura.com", "fastchevy.com",
	"fastchrysler.com", "fastkawasaki.com", "fastmazda.com", "fastmitsubishi.com",
	"fastnissan.com", "fastsubaru.com", "fastsuzuki.com", "fasttoyota.com",
	"fastyamaha.com", "filzmail.com", "fizmail.com", "frapmail.com", "front14.org",
	"fux0ringduh.com", "garliclife.com", "get1mail.com", "get2mail.fr", "getonemail.com",
	"getonemail.net", "ghosttexter.de", "girlsundertheinfluence.com", "gishpuppy.com",
	"gmal.com", "gmial.com", "goemailgo.com", "gotmail.net", "gotmail.org",
	"greensloth.com", "gsrv.co.uk", "guerillamail.biz", "guerillamail.de",
	"guerillamail.net", "guerillamail.org", "h.mintemail.com", "h8s.org", "haltospam.com",
	"hatespam.org", "hidemail.de",
}
